/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package trigger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Election is the leadership contract the wrapper needs, satisfied by
// leadership.Election.
type Election interface {
	Start(ctx context.Context) error
	Stop() error
	IsLeader() bool
	LeaderCh() <-chan bool
}

// LeaderAware wraps a Scheduler so trigger firing only runs on the
// instance currently holding the leadership lease.
type LeaderAware struct {
	scheduler *Scheduler
	election  Election
	logger    zerolog.Logger

	ctx context.Context

	// mu guards running across the monitor goroutine and Stop.
	mu      sync.Mutex
	running bool
}

// NewLeaderAware creates the leader-aware wrapper.
func NewLeaderAware(scheduler *Scheduler, election Election, logger zerolog.Logger) *LeaderAware {
	return &LeaderAware{
		scheduler: scheduler,
		election:  election,
		logger:    logger.With().Str("component", "leader_aware_trigger").Logger(),
	}
}

// Start begins the election and manages the scheduler with leadership
// changes.
func (la *LeaderAware) Start(ctx context.Context) error {
	la.ctx = ctx
	la.logger.Info().Msg("starting leader-aware trigger scheduler")

	if err := la.election.Start(ctx); err != nil {
		return err
	}
	go la.monitorLeadership()
	return nil
}

// Stop halts the scheduler if running and releases leadership.
func (la *LeaderAware) Stop() error {
	la.stopScheduler()
	return la.election.Stop()
}

// IsLeader reports whether this instance currently leads.
func (la *LeaderAware) IsLeader() bool {
	return la.election.IsLeader()
}

func (la *LeaderAware) monitorLeadership() {
	leaderCh := la.election.LeaderCh()

	if la.election.IsLeader() {
		la.startScheduler()
	}

	for {
		select {
		case <-la.ctx.Done():
			return
		case isLeader := <-leaderCh:
			if isLeader {
				la.logger.Info().Msg("became leader, starting trigger scheduler")
				la.startScheduler()
			} else {
				la.logger.Warn().Msg("lost leadership, stopping trigger scheduler")
				la.stopScheduler()
			}
		}
	}
}

func (la *LeaderAware) startScheduler() {
	la.mu.Lock()
	defer la.mu.Unlock()
	if la.running {
		return
	}
	if err := la.scheduler.Start(la.ctx); err != nil {
		la.logger.Error().Err(err).Msg("start trigger scheduler")
		return
	}
	la.running = true
}

func (la *LeaderAware) stopScheduler() {
	la.mu.Lock()
	defer la.mu.Unlock()
	if !la.running {
		return
	}
	la.scheduler.Stop()
	la.running = false
}
