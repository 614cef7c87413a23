package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aetherswarm/verifier/internal/attestation"
	"github.com/aetherswarm/verifier/internal/config"
	"github.com/aetherswarm/verifier/internal/digest"
	"github.com/aetherswarm/verifier/internal/logx"
	"github.com/aetherswarm/verifier/internal/pipeline"
	"github.com/aetherswarm/verifier/internal/session"
	"github.com/aetherswarm/verifier/internal/version"
	"github.com/spf13/cobra"
)

// devCommands is populated by dev.go (build tag "dev") with dev-only subcommands.
var devCommands []*cobra.Command

func main() {
	var (
		logLevel string
		verbose  bool
	)

	rootCmd := &cobra.Command{
		Use:     "verifier",
		Short:   "TEE data-verification agent for the AetherSwarm coordinator",
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logx.Configure(logLevel, verbose)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(version.String("verifier") + "\n")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error (or VERIFIER_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose debug logs (same as --log-level debug)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newHashCmd())
	for _, cmd := range devCommands {
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the coordinator and serve verification tasks",
		Long: `Register with the coordinator over WebSocket, then verify every
verify_task received: re-hash each chunk, fold the verified digests into an
aggregate commitment, attest it and reply with a task_result.

The agent exits when the coordinator closes the channel. Transport errors
exit non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}
			return runAgent(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Path to .env file (skipped if not found and not explicitly set)")

	return cmd
}

func runAgent(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logx.Redact(cfg.AttestationToken)

	provider := attestation.New(cfg.AttestationOptions())
	logx.Infof("attestation provider: %s environment=%s", providerName(cfg), cfg.Environment)

	p := pipeline.New(cfg.AgentID, provider, pipeline.WithAttestTimeout(cfg.AttestationTimeout))
	s := session.New(session.Config{
		URL:          cfg.CoordinatorURL,
		AgentID:      cfg.AgentID,
		Capabilities: config.Capabilities,
	}, p)

	err := s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logx.Infof("shutting down")
		return nil
	}
	return err
}

func providerName(cfg *config.Config) string {
	if cfg.DevMode {
		return "simulated"
	}
	return "delegated (" + cfg.AttestationURL + ")"
}

func newStatusCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration and attestation provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}
			showStatus(cfg)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Path to .env file (skipped if not found and not explicitly set)")

	return cmd
}

func showStatus(cfg *config.Config) {
	token := ""
	if cfg.AttestationToken != "" {
		token = logx.Placeholder
	}
	fmt.Printf("agent_id=%s\n", cfg.AgentID)
	fmt.Printf("coordinator=%s\n", cfg.CoordinatorURL)
	fmt.Printf("environment=%s\n", cfg.Environment)
	fmt.Printf("dev_mode=%v\n", cfg.DevMode)
	fmt.Printf("provider=%s\n", providerName(cfg))
	fmt.Printf("attestation_token=%s\n", token)
	fmt.Printf("attestation_timeout=%s\n", cfg.AttestationTimeout)
	fmt.Printf("capabilities=%v\n", config.Capabilities)
}

func newHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the canonical BLAKE3 digest of a JSON payload file",
		Long: `Canonicalize the JSON value in <file> (sorted keys, compact) and print
its BLAKE3-256 digest as lowercase hex. This is the value a data chunk's
"hash" field must carry to verify. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(args[0])
			if err != nil {
				return err
			}
			h, err := digest.Hash(payload)
			if err != nil {
				return fmt.Errorf("hash %s: %w", args[0], err)
			}
			fmt.Println(h)
			return nil
		},
	}
	return cmd
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
