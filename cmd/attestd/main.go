package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aetherswarm/verifier/internal/attestd"
	"github.com/aetherswarm/verifier/internal/logx"
	"github.com/aetherswarm/verifier/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	verbose := flag.Bool("verbose", false, "Enable verbose debug logs (same as --log-level debug)")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error (or VERIFIER_LOG_LEVEL)")
	flag.BoolVar(showVersion, "v", false, "Print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.String("attestd"))
		fmt.Fprintf(os.Stderr, "attestd signs aggregate data commitments and binds them to a TDX quote.\n\n")
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  ATTESTD_SIGNING_SEED     Validator key seed (hex, min 16 bytes, required)\n")
		fmt.Fprintf(os.Stderr, "  ATTESTD_LISTEN_ADDR      Listen address (default: :8090)\n")
		fmt.Fprintf(os.Stderr, "  ATTESTD_QUOTE            Quote source: dstack|sim (default: dstack)\n")
		fmt.Fprintf(os.Stderr, "  ATTESTD_DSTACK_ENDPOINT  dstack guest agent endpoint (default: SDK socket)\n")
		fmt.Fprintf(os.Stderr, "  ATTESTD_TOKEN            Bearer token required on /verify and /info (min 16 chars)\n")
		fmt.Fprintf(os.Stderr, "  ATTESTD_RATE_LIMIT       Requests per second (default: 20)\n")
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("attestd"))
		os.Exit(0)
	}

	if err := logx.Configure(*logLevel, *verbose); err != nil {
		log.Fatalf("configure logging: %v", err)
	}

	cfg, err := attestd.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logx.Redact(cfg.Token)

	signer, err := attestd.NewSigner(cfg.SigningSeed)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}

	r := attestd.NewRouter(cfg, cfg.NewQuoter(), signer)
	logx.Infof("attestd config: quote=%s validator=%s auth=%v rate=%.1f/s", cfg.QuoteSource, signer.PublicKeyHex(), cfg.Token != "", cfg.RateLimit)

	log.Printf("attestd listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
