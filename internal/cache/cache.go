/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache maintains the Redis projection of currently-open
// schedules, with an in-memory fallback when Redis is unreachable.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/telemetry"
)

// KeyOpenSchedules holds the set of schedule ids currently inside an
// open window.
const KeyOpenSchedules = "vakt:hours:open"

// Config contains projection configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// OpenSet is the schedule open/closed projection. Reads and writes fall
// back to an in-process set when Redis is down, so single-instance
// deployments keep working without it.
type OpenSet struct {
	client *redis.Client
	logger zerolog.Logger

	mu       sync.RWMutex
	disabled bool
	local    map[string]struct{}
}

// New creates the open-schedule projection.
func New(cfg Config, logger zerolog.Logger) *OpenSet {
	set := &OpenSet{
		logger: logger.With().Str("component", "open_set").Logger(),
		local:  make(map[string]struct{}),
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		set.logger.Warn().Err(err).Msg("Redis unavailable, open projection runs in-memory only")
		set.disabled = true
		return set
	}

	set.client = client
	set.logger.Info().Str("addr", cfg.RedisAddr).Msg("open projection initialized")
	return set
}

// Close closes the Redis connection.
func (s *OpenSet) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Available reports whether the Redis backend is reachable.
func (s *OpenSet) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled
}

// MarkOpen records that the schedule entered an open window.
func (s *OpenSet) MarkOpen(ctx context.Context, scheduleID string) error {
	s.mu.Lock()
	s.local[scheduleID] = struct{}{}
	size := len(s.local)
	s.mu.Unlock()
	telemetry.OpenSchedules.Set(float64(size))

	if s.redisDisabled() {
		return nil
	}
	if err := s.client.SAdd(ctx, KeyOpenSchedules, scheduleID).Err(); err != nil {
		s.degrade(err)
	}
	return nil
}

// MarkClosed records that the schedule left its open windows.
func (s *OpenSet) MarkClosed(ctx context.Context, scheduleID string) error {
	s.mu.Lock()
	delete(s.local, scheduleID)
	size := len(s.local)
	s.mu.Unlock()
	telemetry.OpenSchedules.Set(float64(size))

	if s.redisDisabled() {
		return nil
	}
	if err := s.client.SRem(ctx, KeyOpenSchedules, scheduleID).Err(); err != nil {
		s.degrade(err)
	}
	return nil
}

// IsOpen reports whether the schedule is currently marked open.
func (s *OpenSet) IsOpen(ctx context.Context, scheduleID string) (bool, error) {
	if !s.redisDisabled() {
		open, err := s.client.SIsMember(ctx, KeyOpenSchedules, scheduleID).Result()
		if err == nil {
			return open, nil
		}
		s.degrade(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.local[scheduleID]
	return ok, nil
}

// OpenScheduleIDs lists every schedule currently marked open.
func (s *OpenSet) OpenScheduleIDs(ctx context.Context) ([]string, error) {
	if !s.redisDisabled() {
		ids, err := s.client.SMembers(ctx, KeyOpenSchedules).Result()
		if err == nil {
			return ids, nil
		}
		s.degrade(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.local))
	for id := range s.local {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *OpenSet) redisDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled || s.client == nil
}

func (s *OpenSet) degrade(err error) {
	s.mu.Lock()
	already := s.disabled
	s.disabled = true
	s.mu.Unlock()
	if !already {
		s.logger.Warn().Err(err).Msg("Redis error, open projection falling back to in-memory")
	}
}
