package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"careerpath/internal/config"
	"careerpath/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start an HTTP server that exposes resume matching and cover letter drafting.

Available endpoints:
- POST /match: Score a resume against a job description
- POST /cover-letter: Render a cover letter from skills and gaps
- POST /analyze: Match score and cover letter in one call
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	cmd.Flags().String("host", "", "Host to bind to (default from config)")
	cmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	cmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	cmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	cmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	return cmd
}

// applyServeFlags copies explicitly set flags over the loaded config
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &cfg.Server.Port},
		{"host", &cfg.Server.Host},
		{"tls-mode", &cfg.Server.TLS.Mode},
		{"cert-file", &cfg.Server.TLS.CertFile},
		{"key-file", &cfg.Server.TLS.KeyFile},
		{"ca-file", &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return err
		}
		*o.target = value
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := dependencies(cmd.Context())
	if err != nil {
		return err
	}

	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	vaultClient, err := config.ApplyVaultSecrets(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	serverCfg := server.ServerConfigFromApp(cfg, Version)
	serverCfg.Vault = vaultClient

	srv, err := server.NewServer(cfg, serverCfg, engine, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(cmd.Context())
}
