/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package trigger runs the recurring open/close firings against the
// hours engine.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/events"
	"github.com/friendsincode/vakt/internal/hours"
	"github.com/friendsincode/vakt/internal/telemetry"
)

const fireTimeout = 30 * time.Second

// Scheduler registers one cron entry per distinct trigger key and fires
// the engine when an entry comes due. Entries run in the server-offset
// zone trigger keys are derived in, so a pinned offset override moves
// the cron clock together with the keys.
type Scheduler struct {
	engine  hours.Behavior
	bus     events.Publisher
	logger  zerolog.Logger
	refresh time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	entries map[hours.TriggerKey]cron.EntryID
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates the trigger scheduler. refresh controls how often the
// registration set is re-read from the engine.
func New(engine hours.Behavior, bus events.Publisher, refresh time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:  engine,
		bus:     bus,
		logger:  logger.With().Str("component", "trigger_scheduler").Logger(),
		refresh: refresh,
		cron:    cron.New(cron.WithLocation(hours.ServerLocation())),
		entries: make(map[hours.TriggerKey]cron.EntryID),
	}
}

// Start registers the current trigger set, starts the cron runner, and
// begins periodic refreshes.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	s.cron.Start()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.refreshLoop(ctx)

	s.logger.Info().Dur("refresh", s.refresh).Msg("trigger scheduler started")
	return nil
}

// Stop halts the cron runner and the refresh loop, waiting for any
// in-flight firing to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("trigger scheduler stopped")
}

// Refresh diffs the engine's current trigger keys against the
// registered cron entries, adding and removing as needed.
func (s *Scheduler) Refresh(ctx context.Context) error {
	keys, err := s.engine.FindTriggerKeys(ctx)
	if err != nil {
		return fmt.Errorf("find trigger keys: %w", err)
	}

	wanted := make(map[hours.TriggerKey]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, id := range s.entries {
		if _, ok := wanted[key]; !ok {
			s.cron.Remove(id)
			delete(s.entries, key)
			s.logger.Debug().Str("day", key.Day).Str("time", key.Time).Msg("trigger unregistered")
		}
	}

	for key := range wanted {
		if _, ok := s.entries[key]; ok {
			continue
		}
		spec, err := cronSpec(key)
		if err != nil {
			s.logger.Error().Err(err).Str("day", key.Day).Str("time", key.Time).Msg("skip unparseable trigger key")
			continue
		}
		k := key
		id, err := s.cron.AddFunc(spec, func() { s.fire(k) })
		if err != nil {
			s.logger.Error().Err(err).Str("spec", spec).Msg("register trigger")
			continue
		}
		s.entries[key] = id
		s.logger.Debug().Str("day", key.Day).Str("time", key.Time).Msg("trigger registered")
	}

	telemetry.RegisteredTriggers.Set(float64(len(s.entries)))
	return nil
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error().Err(err).Msg("trigger refresh failed")
			}
		}
	}
}

func (s *Scheduler) fire(key hours.TriggerKey) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	if err := s.engine.HandleTrigger(ctx, key.Day, key.Time); err != nil {
		telemetry.TriggerFirings.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("day", key.Day).Str("time", key.Time).Msg("trigger handling failed")
		return
	}
	telemetry.TriggerFirings.WithLabelValues("ok").Inc()
	s.bus.Publish(events.EventTriggerFired, events.Payload{
		"day":  key.Day,
		"time": key.Time,
	})
}

// cronSpec renders a trigger key as a standard five-field cron spec
// firing weekly at the key's server-local day and time.
func cronSpec(key hours.TriggerKey) (string, error) {
	day, err := hours.ParseWeekday(key.Day)
	if err != nil {
		return "", err
	}
	hour, minute, err := hours.ParseClock(key.Time)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * %d", minute, hour, int(day)), nil
}
