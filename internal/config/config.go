package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aetherswarm/verifier/internal/attestation"
)

const (
	DefaultCoordinatorURL     = "ws://localhost:8080"
	DefaultAgentID            = "verifier-001"
	DefaultEnvironment        = "testnet"
	DefaultAttestationURL     = "http://localhost:8090"
	DefaultAttestationTimeout = 10 * time.Second
	DefaultEnvFile            = ".env"
)

// Capabilities announced to the coordinator on registration.
var Capabilities = []string{"tee_attestation", "hash_verification", "data_integrity"}

// Config holds agent configuration loaded from environment variables.
// It is built once at startup and treated as read-only afterwards.
type Config struct {
	CoordinatorURL string
	AgentID        string

	Environment        string
	DevMode            bool
	AttestationURL     string
	AttestationToken   string
	AttestationTimeout time.Duration
}

// Load reads envFile (if present) into the process environment and then
// resolves the configuration. A missing envFile is only an error when
// explicit is true.
func Load(envFile string, explicit bool) (*Config, error) {
	if envFile != "" {
		entries, err := ParseEnvFile(envFile)
		switch {
		case err == nil:
			if err := applyEnvEntries(entries); err != nil {
				return nil, err
			}
		case !explicit && errors.Is(err, os.ErrNotExist):
			// default .env not found → environment only
		default:
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv resolves the configuration from the process environment.
func FromEnv() (*Config, error) {
	coordinatorURL := envOr("COORDINATOR_WS_URL", DefaultCoordinatorURL)
	u, err := url.Parse(coordinatorURL)
	if err != nil {
		return nil, fmt.Errorf("COORDINATOR_WS_URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("COORDINATOR_WS_URL must use ws:// or wss://, got %q", coordinatorURL)
	}

	environment := strings.ToLower(envOr("EIGENCLOUD_ENVIRONMENT", DefaultEnvironment))
	if environment != "testnet" && environment != "mainnet" {
		return nil, fmt.Errorf("EIGENCLOUD_ENVIRONMENT must be testnet or mainnet, got %q", environment)
	}

	devMode := false
	if v := strings.TrimSpace(strings.ToLower(os.Getenv("EIGENCLOUD_DEV_MODE"))); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			devMode = true
		case "0", "false", "no", "off":
			devMode = false
		default:
			return nil, fmt.Errorf("EIGENCLOUD_DEV_MODE must be one of true/false/1/0/yes/no/on/off")
		}
	}

	attestationURL := strings.TrimRight(envOr("TEE_CONTAINER_URL", DefaultAttestationURL), "/")
	au, err := url.Parse(attestationURL)
	if err != nil || (au.Scheme != "http" && au.Scheme != "https") || au.Host == "" {
		return nil, fmt.Errorf("TEE_CONTAINER_URL must be an http(s) URL, got %q", attestationURL)
	}

	timeout := DefaultAttestationTimeout
	if v := strings.TrimSpace(os.Getenv("ATTESTATION_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ATTESTATION_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("ATTESTATION_TIMEOUT must be positive, got %s", d)
		}
		timeout = d
	}

	return &Config{
		CoordinatorURL:     coordinatorURL,
		AgentID:            envOr("AGENT_ID", DefaultAgentID),
		Environment:        environment,
		DevMode:            devMode,
		AttestationURL:     attestationURL,
		AttestationToken:   strings.TrimSpace(os.Getenv("TEE_CONTAINER_TOKEN")),
		AttestationTimeout: timeout,
	}, nil
}

// AttestationOptions returns the provider options derived from c.
func (c *Config) AttestationOptions() attestation.Options {
	return attestation.Options{
		DevMode:     c.DevMode,
		Endpoint:    c.AttestationURL,
		Token:       c.AttestationToken,
		Environment: c.Environment,
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
