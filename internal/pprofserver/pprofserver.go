// Package pprofserver serves Go profiling endpoints on a loopback-only listener.
package pprofserver

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
)

// Handle registers the pprof handlers on the given mux.
func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

// Launch starts a pprof server on addr in a background goroutine. The address
// should stay on a loopback interface since the endpoints are unauthenticated.
func Launch(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	Handle(mux)
	srv := &http.Server{ //nolint:exhaustruct // pprof is only reachable locally.
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logger.Info("starting pprof server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("pprof server stopped", "error", err)
		}
	}()
}
