package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-signpdf/internal/config"
	"go-signpdf/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the signing API",
		Long: `Starts the HTTP API. Settings come from the environment and an
optional .env file; see internal/config for the keys.`,
		Example: `  # Start on the port from PORT (default 8080)
  signpdf serve

  # Start on a custom port
  signpdf serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			logger := cfg.NewLogger(cmd.ErrOrStderr())

			apiServer, err := server.NewServer(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("signing API available", "addr", apiServer.Addr, "env", cfg.AppEnv)
				if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := apiServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("server shutdown failed", "err", err)
					return err
				}
				logger.Info("server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides PORT)")

	return cmd
}
