// Package diag serves the runtime diagnostics endpoints: pprof and the
// Prometheus metrics of the current scan job.
package diag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"go.uber.org/zap"

	"github.com/basescout/basescout/internal/log"
	"github.com/basescout/basescout/internal/metrics"
)

// Serve runs the diagnostics server on addr until the context is
// cancelled. The metrics handler comes from the context's collector.
func Serve(ctx context.Context, addr, metricsName string) error {
	if addr == "" {
		return errors.New("address cannot be empty")
	}
	logger := log.NewLogger(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.FromContext(ctx, metricsName).MetricsHandler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting diagnostics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("diagnostics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("diagnostics server shutdown failed: %w", err)
	}
	return nil
}
