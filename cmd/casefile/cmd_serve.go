package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/casefile/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API",
	Long: `Serves the game and detective endpoints under /api, plus /health and
/metrics. Host, port and allowed origins come from .casefile/config.yaml and
the CASEFILE_HOST / CASEFILE_PORT environment variables.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	srv, err := eng.newServer()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		if errors.Is(err, server.ErrDisabled) {
			return fmt.Errorf("server is disabled in %s", eng.cfg.ProjectConfigPath())
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "casefile %s listening on %s\n", version, srv.BaseURL())
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	eng.logger.Info("server: shutting down")
	return srv.Shutdown(shutdownCtx)
}
