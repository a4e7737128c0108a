package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ingest/internal/certs"
	"github.com/Veraticus/spice-ingest/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parsing API over HTTP",
		Long: `Serve the pipeline over HTTP:

  POST /api/v1/transactions/parse         parse text, JSON response
  POST /api/v1/transactions/parse/stream  parse text, server-sent events
  GET  /api/v1/keys/status                credential pool status
  GET  /healthz                           liveness`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.tls.enabled", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(cfg.Server, a.service, a.pool, a.logger.With("component", "server"))
	defer srv.Close()

	if cfg.TLS.Enabled {
		srv.UseTLS(certs.NewFileManager(cfg.TLS.CertDir, cfg.TLS.Hosts...))
	}

	return srv.ListenAndServe(cmd.Context())
}
