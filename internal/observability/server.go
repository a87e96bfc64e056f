// Package observability serves the metrics and health endpoints and sets up
// tracing.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
)

const shutdownTimeout = 5 * time.Second

// MetricsHandler serves the collectors of g on /metrics.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// HealthHandler serves /healthz, which always passes, and /readyz, which
// runs ready.
func HealthHandler(ready healthz.Checker) http.Handler {
	mux := http.NewServeMux()
	mount(mux, "/healthz", &healthz.Handler{Checks: map[string]healthz.Checker{"ping": healthz.Ping}})
	mount(mux, "/readyz", &healthz.Handler{Checks: map[string]healthz.Checker{"reconciled": ready}})
	return mux
}

// mount registers h for the path and its individual checks below it.
func mount(mux *http.ServeMux, path string, h http.Handler) {
	mux.Handle(path, http.StripPrefix(path, h))
	mux.Handle(path+"/", http.StripPrefix(path, h))
}

// Start listens on addr and serves h until ctx is done. An empty addr or "0"
// disables the server. Listen errors are returned, serve errors are logged.
func Start(ctx context.Context, log logr.Logger, addr string, h http.Handler) error {
	if addr == "" || addr == "0" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(err, "error shutting down server", "addr", addr)
		}
	}()
	go func() {
		log.Info("serving", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "server stopped", "addr", addr)
		}
	}()
	return nil
}
