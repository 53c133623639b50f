package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/server"
)

var servePort int

// serveCmd starts the read-only HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only HTTP API",
	Long: `Serve workspace data over HTTP for dashboards and local tooling.
The API is read-only; all mutation goes through the MCP surface.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
}

func runServe(ctx context.Context) error {
	logger := newLogger()
	cfg := GetConfig()

	svc, closeAll, err := openServices()
	if err != nil {
		return err
	}
	defer closeAll()

	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(port, svc.Stores, svc.Registry, svc.Audit, cfg.Server.AllowedOrigins, logger)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	wg.Wait()
	return nil
}
