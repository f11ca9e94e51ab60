package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/catalogmind/catalog-engine/cmd/catalog-engine-api/handlers"
	"github.com/catalogmind/catalog-engine/cmd/catengine/ui"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, cfg, logger, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(logger, eng, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	ui.Message("Catalog Engine API listening on %s", addr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case <-shutdown:
		ui.Message("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.GracefulShutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
