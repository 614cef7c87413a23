package attestation

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies attestation failures.
type ErrorKind string

const (
	// KindTransport: the endpoint could not be reached or the exchange broke.
	KindTransport ErrorKind = "transport"
	// KindStatus: the endpoint answered with a non-success HTTP status.
	KindStatus ErrorKind = "status"
	// KindDecode: the response body was not a valid attestation.
	KindDecode ErrorKind = "decode"
	// KindRejected: the endpoint answered but reported success=false.
	KindRejected ErrorKind = "rejected"
	// KindTimeout: the caller's deadline expired before a response arrived.
	KindTimeout ErrorKind = "timeout"
)

// Error is returned by providers for every failed attestation.
type Error struct {
	Kind ErrorKind
	// Detail is diagnostic text supplied by the provider, if any.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var prefix string
	switch e.Kind {
	case KindTransport:
		prefix = "TEE container error"
	case KindStatus:
		prefix = "TEE verification failed"
	case KindDecode:
		prefix = "failed to parse attestation"
	case KindRejected:
		prefix = "TEE attestation rejected"
	case KindTimeout:
		prefix = "TEE attestation timed out"
	default:
		prefix = "attestation error"
	}
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", prefix, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of an attestation error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// transportError maps a failed exchange to KindTimeout when the context
// deadline caused it.
func transportError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindTransport, Err: err}
}
