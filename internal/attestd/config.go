package attestd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Quote sources.
const (
	QuoteDstack = "dstack"
	QuoteSim    = "sim"
)

// Config holds attestation container configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	SigningSeed    []byte
	QuoteSource    string
	DstackEndpoint string
	Token          string
	RateLimit      float64
	RateBurst      int
}

// LoadConfig loads attestd configuration from environment variables.
func LoadConfig() (*Config, error) {
	seedHex := strings.TrimSpace(os.Getenv("ATTESTD_SIGNING_SEED"))
	if seedHex == "" {
		return nil, fmt.Errorf("ATTESTD_SIGNING_SEED is required")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("ATTESTD_SIGNING_SEED must be hex: %w", err)
	}
	if len(seed) < 16 {
		return nil, fmt.Errorf("ATTESTD_SIGNING_SEED must be at least 16 bytes (32 hex chars)")
	}

	listenAddr := os.Getenv("ATTESTD_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8090"
	}

	source := strings.ToLower(strings.TrimSpace(os.Getenv("ATTESTD_QUOTE")))
	switch source {
	case "":
		source = QuoteDstack
	case QuoteDstack, QuoteSim:
	default:
		return nil, fmt.Errorf("ATTESTD_QUOTE must be %q or %q", QuoteDstack, QuoteSim)
	}

	token := strings.TrimSpace(os.Getenv("ATTESTD_TOKEN"))
	if token != "" && len(token) < 16 {
		return nil, fmt.Errorf("ATTESTD_TOKEN must be at least 16 characters")
	}

	rateLimit := 20.0
	if v := strings.TrimSpace(os.Getenv("ATTESTD_RATE_LIMIT")); v != "" {
		rateLimit, err = strconv.ParseFloat(v, 64)
		if err != nil || rateLimit <= 0 {
			return nil, fmt.Errorf("ATTESTD_RATE_LIMIT must be a positive number of requests per second")
		}
	}
	burst := int(rateLimit)
	if burst < 1 {
		burst = 1
	}

	return &Config{
		ListenAddr:     listenAddr,
		SigningSeed:    seed,
		QuoteSource:    source,
		DstackEndpoint: strings.TrimSpace(os.Getenv("ATTESTD_DSTACK_ENDPOINT")),
		Token:          token,
		RateLimit:      rateLimit,
		RateBurst:      burst,
	}, nil
}

// NewQuoter returns the quote source selected by cfg.
func (c *Config) NewQuoter() Quoter {
	if c.QuoteSource == QuoteSim {
		return SimQuoter{}
	}
	return NewDstackQuoter(c.DstackEndpoint)
}
