package attestation

import (
	"context"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// devDomainTag separates simulated quotes from any other use of the hash.
const devDomainTag = "eigencloud_dev_attestation"

// Marker prefixes identifying simulated, non-production material.
const (
	DevQuotePrefix     = "DEV_TDX_QUOTE_"
	DevPubkeyPrefix    = "DEV_PUBKEY_"
	DevSignaturePrefix = "DEV_SIG_"
)

// Simulated derives attestation fields deterministically from the aggregate
// hash and quest id. NOT for production: nothing here is hardware-backed.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Attest(_ context.Context, aggregateHash string, _ []string, questID string) (*Attestation, error) {
	h := blake3.New(32, nil)
	h.Write([]byte(aggregateHash))
	h.Write([]byte(questID))
	h.Write([]byte(devDomainTag))
	sum := hex.EncodeToString(h.Sum(nil))

	return &Attestation{
		Quote:           DevQuotePrefix + sum,
		ValidatorPubkey: DevPubkeyPrefix + sum[:16],
		Signature:       DevSignaturePrefix + sum[16:48],
		Success:         true,
	}, nil
}
