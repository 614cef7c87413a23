package attestation

import (
	"context"
	"time"
)

// Attestation is the trust anchor's statement over an aggregate commitment.
// Field names follow the attestation container's JSON response.
type Attestation struct {
	Quote           string `json:"quote"`
	ValidatorPubkey string `json:"validatorPubkey"`
	Signature       string `json:"signature"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

// Provider obtains an attestation binding aggregateHash (and the ordered list
// of verified chunk digests behind it) to a trusted execution environment.
//
// Implementations must honor ctx cancellation; the caller bounds every call
// with a deadline.
type Provider interface {
	Attest(ctx context.Context, aggregateHash string, verified []string, questID string) (*Attestation, error)
}

// Options selects and configures a Provider.
type Options struct {
	// DevMode forces the simulated provider.
	DevMode bool
	// Endpoint is the attestation container base URL (delegated provider).
	Endpoint string
	// Token, when set, is sent as a Bearer credential to Endpoint.
	Token string
	// Environment is the attested-compute network, "testnet" or "mainnet".
	Environment string
	// Now overrides the request timestamp clock (tests).
	Now func() time.Time
}

// New returns the provider selected by opts. The choice is made once; callers
// only ever see the Provider interface.
func New(opts Options) Provider {
	if opts.DevMode {
		return NewSimulated()
	}
	return NewDelegated(opts)
}
