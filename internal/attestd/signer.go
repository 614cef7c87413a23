package attestd

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"
)

const (
	hkdfInfo     = "aetherswarm/attestd/ed25519/v1"
	statementTag = "aetherswarm-attestation-v1"
)

// Signer holds the container's validator key.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner derives an Ed25519 key from seed with HKDF-SHA256, so the same
// seed always yields the same validator identity.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) < 16 {
		return nil, fmt.Errorf("signing seed must be at least 16 bytes, got %d", len(seed))
	}
	kdf := hkdf.New(sha256.New, seed, nil, []byte(hkdfInfo))
	keySeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(kdf, keySeed); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(keySeed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// PublicKeyHex returns the validator public key.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}

// Sign signs a statement digest and returns the hex signature.
func (s *Signer) Sign(statement []byte) string {
	return hex.EncodeToString(ed25519.Sign(s.priv, statement))
}

// Verify checks a hex signature over statement.
func (s *Signer) Verify(statement []byte, sigHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.pub, statement, sig)
}

// Statement is the 32-byte digest that is both quoted (as report data) and
// signed. It commits to the aggregate hash, the quest, the request time and
// the ordered verified digests.
func Statement(dataHash, questID string, timestamp int64, verified []string) []byte {
	h := blake3.New(32, nil)
	writeField(h, statementTag)
	writeField(h, dataHash)
	writeField(h, questID)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(timestamp))
	h.Write(ts[:])
	for _, v := range verified {
		writeField(h, v)
	}
	return h.Sum(nil)
}

// writeField length-prefixes s so adjacent fields cannot run together.
func writeField(w io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	w.Write(n[:])
	io.WriteString(w, s)
}
