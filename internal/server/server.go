/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the ops surface: health, readiness, metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vakt/internal/cache"
	"github.com/friendsincode/vakt/internal/telemetry"
)

// LeaderReporter reports whether this instance leads trigger firing.
type LeaderReporter interface {
	IsLeader() bool
}

// Ops is the operational HTTP listener. The routing API of the wider
// platform lives elsewhere; this process only exposes health and
// metrics.
type Ops struct {
	logger     zerolog.Logger
	httpServer *http.Server

	db      *gorm.DB
	openSet *cache.OpenSet
	leader  LeaderReporter
}

// NewOps builds the ops listener. leader may be nil when leader
// election is disabled.
func NewOps(bind string, db *gorm.DB, openSet *cache.OpenSet, leader LeaderReporter, logger zerolog.Logger) *Ops {
	o := &Ops{
		logger:  logger.With().Str("component", "ops_server").Logger(),
		db:      db,
		openSet: openSet,
		leader:  leader,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", o.handleHealthz)
	router.Get("/readyz", o.handleReadyz)
	router.Handle("/metrics", telemetry.Handler())

	o.httpServer = &http.Server{
		Addr:              bind,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return o
}

// Start serves until the listener fails or Shutdown is called.
func (o *Ops) Start() error {
	o.logger.Info().Str("bind", o.httpServer.Addr).Msg("ops server listening")
	if err := o.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (o *Ops) Shutdown(ctx context.Context) error {
	return o.httpServer.Shutdown(ctx)
}

func (o *Ops) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := `{"status":"ok"`
	if o.leader != nil {
		if o.leader.IsLeader() {
			response += `,"leader":true`
		} else {
			response += `,"leader":false`
		}
	}
	response += `}`
	_, _ = w.Write([]byte(response))
}

// handleReadyz fails when the database is unreachable. A degraded Redis
// projection does not fail readiness; the engine keeps working without it.
func (o *Ops) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sqlDB, err := o.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		o.logger.Warn().Err(err).Msg("readiness check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable","database":"down"}`))
		return
	}

	projection := "ok"
	if o.openSet != nil && !o.openSet.Available() {
		projection = "degraded"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","projection":"` + projection + `"}`))
}
