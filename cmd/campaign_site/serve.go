package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peacoop/campaign-site/internal/server"
)

var (
	servePort    int
	servePreload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start an HTTP server that renders the campaign page and accepts opinion submissions.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config, default 8080)")
	serveCmd.Flags().BoolVar(&servePreload, "preload", true, "Render the page and tag cloud before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	if servePreload {
		ctx := context.Background()
		if _, err := a.tags.Reload(ctx); err != nil {
			logger.Warn("Tag cloud unavailable at startup", zap.Error(err))
		}
		if _, err := a.coordinator.LoadAll(ctx); err != nil {
			logger.Warn("Initial page load incomplete", zap.Error(err))
		}
	}

	srv, err := server.New(server.Config{
		Port:     port,
		Site:     a.coordinator,
		Form:     a.form,
		Tags:     a.tags,
		Locale:   a.cfg.Locale,
		Registry: a.registry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
