package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/tableload/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and report page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(nil)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr()
			}

			slog.Info("configuration loaded",
				"addr", addr,
				"driver", a.cfg.Database.Driver,
				"db_max_conns", a.cfg.Database.MaxConns,
				"load_max_concurrent", a.cfg.Load.MaxConcurrent,
				"rate_limit", a.cfg.Server.RateLimit,
				"require_api_key", a.cfg.Security.RequireAPIKey,
			)

			server := web.NewServer(svc, a.cfg.Server, a.cfg.Security)
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(addr)
			}()

			ctx, stop := interruptible(cmd.Context())
			defer stop()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			// Wait for active loads to complete (with timeout)
			if status := svc.Limiter().Status(); status.Active > 0 {
				slog.Info("waiting for loads to complete", "active", status.Active)
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default SERVER_HOST:SERVER_PORT)")
	return cmd
}
