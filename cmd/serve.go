// =============================================================================
// NF-e / DANFE Filter - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which exposes the filter as an
// upload form and a multipart HTTP endpoint.
//
// COMMAND USAGE:
//   nfefilter serve [--port 8080]
//
// The server stops gracefully on SIGINT or SIGTERM.
//
// =============================================================================

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/pipeline"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload form and the HTTP filter endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config or APP_PORT)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	log := newLogger(cfg)
	recognizer, err := newRecognizer(cfg, log)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:            cfg.Server.Address(),
		Logger:          log,
		Runner:          pipeline.New(cfg, log, recognizer),
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
