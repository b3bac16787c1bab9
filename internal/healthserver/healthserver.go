// Copyright 2025 The Subindex Authors
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

// Package healthserver exposes the Kubernetes probe endpoints for the
// submission indexer's in-process operator surface (C15): liveness,
// readiness gated on the ontology resolver and indexer being wired, and
// the Prometheus scrape endpoint.
package healthserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Start starts a health/metrics server on the specified port, returning
// immediately; the server itself runs in a goroutine. Each call binds its
// own ServeMux rather than the package-level http.DefaultServeMux, so a
// process that starts more than one instance never panics on a duplicate
// route registration.
//
//   - /healthz - liveness probe, always 200 while the process is alive
//   - /readyz  - readiness probe, backed by readyChecker
//   - /metrics - Prometheus scrape endpoint
func Start(logger *zap.Logger, port int, readyChecker func() bool) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if readyChecker != nil && readyChecker() {
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("ready: ontology resolver and indexer wired")); err != nil {
				logger.Error("failed to write ready response", zap.Error(err))
			}
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte("not ready: waiting on ontology resolver and/or indexer wiring")); err != nil {
			logger.Error("failed to write not ready response", zap.Error(err))
		}
	})

	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", port)
		server := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 40 * time.Second,
		}
		logger.Info("starting health/metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil {
			logger.Error("health server error", zap.Error(err))
		}
	}()
}
