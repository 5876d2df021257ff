package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookrec/internal/metrics"
	"bookrec/internal/service"
	"bookrec/internal/transport/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var modelPath, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, modelPath, addr)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file; defaults to the configured store path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address; defaults to http.addr")
	return cmd
}

func (a *app) serve(ctx context.Context, modelPath, addr string) error {
	m, err := a.loadModel(modelPath)
	if err != nil {
		return err
	}
	metrics.ModelDocuments.Set(float64(m.Len()))

	st, err := a.vectorStore()
	if err != nil {
		return err
	}
	rec := a.recommender(service.WithIndex(st))
	if err := rec.Index(ctx, m); err != nil {
		return err
	}

	server := httpapi.NewServer(rec.Bind(m), a.presenter(), httpapi.Info{Documents: m.Len(), Provider: m.Provider()}, a.logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(a.cfg.HTTP.RequestTimeout()),
		ReadHeaderTimeout: a.cfg.HTTP.RequestTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("server stopped gracefully")
	return nil
}
