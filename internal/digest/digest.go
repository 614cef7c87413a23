// Package digest re-derives chunk digests and folds verified digests into an
// aggregate commitment. Both use BLAKE3-256 rendered as lowercase hex.
package digest

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"
	"lukechampine.com/blake3"
)

const size = 32

var (
	errEmptyPayload   = errors.New("empty payload")
	errInvalidPayload = errors.New("payload is not valid JSON")
	errInexactNumber  = errors.New("payload number is not exactly representable as a float64")
)

// maxExponent bounds the decimal exponent accepted in number literals. Any
// larger magnitude overflows or underflows a float64.
const maxExponent = 400

// Canonical returns the RFC 8785 form of a JSON payload: sorted keys, no
// insignificant whitespace, no HTML escaping.
func Canonical(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errEmptyPayload
	}
	if !json.Valid(payload) {
		return nil, errInvalidPayload
	}
	if err := checkNumbers(payload); err != nil {
		return nil, err
	}
	// jcs only accepts an object or array at the top level; wrapping lets
	// scalar payloads share the same canonical rules.
	wrapped := make([]byte, 0, len(payload)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, payload...)
	wrapped = append(wrapped, ']')

	out, err := jcs.Transform(wrapped)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return out[1 : len(out)-1], nil
}

// checkNumbers rejects number literals that jcs would round when it reads
// them as float64, so distinct payloads never share a canonical form.
func checkNumbers(payload []byte) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("canonicalize payload: %w", err)
		}
		if n, ok := tok.(json.Number); ok && !exactFloat(string(n)) {
			return fmt.Errorf("%w: %s", errInexactNumber, n)
		}
	}
}

// exactFloat reports whether the decimal literal lit survives a float64
// round trip: its value equals that of the shortest decimal form of the
// nearest float64, which is what jcs emits.
func exactFloat(lit string) bool {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return false
	}
	mant, exp, hasExp := strings.Cut(strings.ToLower(lit), "e")
	if strings.Trim(mant, "-0.") == "" {
		return f == 0
	}
	if hasExp {
		e, err := strconv.Atoi(exp)
		if err != nil || e > maxExponent || e < -maxExponent {
			return false
		}
	}
	var want big.Rat
	if _, ok := want.SetString(lit); !ok {
		return false
	}
	var got big.Rat
	if _, ok := got.SetString(strconv.FormatFloat(f, 'g', -1, 64)); !ok {
		return false
	}
	return want.Cmp(&got) == 0
}

// Hash returns the hex digest of the canonical form of payload.
func Hash(payload []byte) (string, error) {
	canon, err := Canonical(payload)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Verify reports whether payload hashes to expected. A payload that cannot be
// canonicalized never matches.
func Verify(payload []byte, expected string) bool {
	got, err := Hash(payload)
	if err != nil {
		return false
	}
	return got == expected
}

// Aggregate folds digests, in order, into one commitment. The string bytes of
// each digest are fed as-is; an empty list yields the hash of no input.
func Aggregate(digests []string) string {
	h := blake3.New(size, nil)
	for _, d := range digests {
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil))
}
