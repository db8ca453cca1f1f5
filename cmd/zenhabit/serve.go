package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/warp/zenhabit/api"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT/SIGTERM.

On shutdown the server stops accepting connections, waits for active
requests, drains queued remote pushes and flushes the pending snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			handler := api.NewHandler(a.session, a.coach, a.remote, logger)
			router := api.NewRouter(handler, api.RouterOptions{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Metrics:        a.metrics.Handler(),
				Logger:         logger,
			})

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("server starting", zap.String("addr", "http://localhost"+server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down server")
			case err = <-serveErr:
				logger.Error("server failed", zap.Error(err))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if serr := server.Shutdown(shutdownCtx); serr != nil {
				logger.Error("server forced to shutdown", zap.Error(serr))
			}
			if cerr := a.Close(shutdownCtx); cerr != nil {
				err = errors.Join(err, cerr)
			}
			logger.Info("server stopped")
			return err
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP server port (overrides server.port)")
	return cmd
}
