// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package debug provides the optional HTTP endpoint exposing liveness,
// readiness and Prometheus metrics for the running pipeline.
package debug

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cdumay/flowgger/internal/errkind"
)

// ListenOpts control Listen.
type ListenOpts struct {
	// TCPAddr is the address to listen on, e.g. "127.0.0.1:8088".
	TCPAddr string

	L *slog.Logger
	R *prometheus.Registry

	// Livez reports whether the process is alive. A nil Livez always reports true.
	Livez func(context.Context) bool

	// Readyz reports whether the process is ready to accept input. A nil
	// Readyz always reports true. /debug/readyz reports ready only while
	// Livez also reports true.
	Readyz func(context.Context) bool
}

// Handler serves the debug HTTP endpoint.
type Handler struct {
	lis net.Listener
	srv *http.Server
	l   *slog.Logger
}

// Listen creates a debug HTTP handler listening on opts.TCPAddr. The caller
// must call Serve to actually accept connections.
func Listen(opts *ListenOpts) (*Handler, error) {
	lis, err := net.Listen("tcp", opts.TCPAddr)
	if err != nil {
		return nil, errkind.New(errkind.Transport, "debug: listen on %s: %s", opts.TCPAddr, err)
	}

	mux := http.NewServeMux()

	livez := opts.Livez
	if livez == nil {
		livez = func(context.Context) bool { return true }
	}

	readyz := opts.Readyz
	if readyz == nil {
		readyz = func(context.Context) bool { return true }
	}

	mux.HandleFunc("/debug/livez", probeHandler(livez))
	mux.HandleFunc("/debug/readyz", probeHandler(func(ctx context.Context) bool { return livez(ctx) && readyz(ctx) }))

	registerer := opts.R
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return &Handler{
		lis: lis,
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		l:   opts.L,
	}, nil
}

// probeHandler turns a bool-returning probe into an HTTP handler: 200 when
// true, 500 otherwise.
func probeHandler(probe func(context.Context) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probe(r.Context()) {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Addr returns the address the handler is listening on.
func (h *Handler) Addr() net.Addr {
	return h.lis.Addr()
}

// Serve runs the debug HTTP server until ctx is canceled.
func (h *Handler) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.srv.Shutdown(shutdownCtx); err != nil {
			h.l.Error("debug: shutdown", slog.Any("error", err))
		}
	}()

	h.l.Info("debug: listening", slog.String("addr", h.lis.Addr().String()))

	if err := h.srv.Serve(h.lis); err != nil && err != http.ErrServerClosed {
		h.l.Error("debug: serve", slog.Any("error", err))
	}
}
