/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"sort"
	"testing"

	"github.com/rs/zerolog"
)

// newLocalSet builds a projection whose Redis backend is unreachable so
// the in-memory fallback carries the state.
func newLocalSet(t *testing.T) *OpenSet {
	t.Helper()
	s := New(Config{RedisAddr: "127.0.0.1:1"}, zerolog.Nop())
	if s.Available() {
		t.Skip("unexpected Redis listener on 127.0.0.1:1")
	}
	return s
}

func TestOpenSetFallbackTracksMembership(t *testing.T) {
	s := newLocalSet(t)
	ctx := context.Background()

	if err := s.MarkOpen(ctx, "s1"); err != nil {
		t.Fatalf("MarkOpen: %v", err)
	}
	if err := s.MarkOpen(ctx, "s2"); err != nil {
		t.Fatalf("MarkOpen: %v", err)
	}

	open, err := s.IsOpen(ctx, "s1")
	if err != nil || !open {
		t.Fatalf("IsOpen(s1) = %v, %v", open, err)
	}

	if err := s.MarkClosed(ctx, "s1"); err != nil {
		t.Fatalf("MarkClosed: %v", err)
	}
	open, err = s.IsOpen(ctx, "s1")
	if err != nil || open {
		t.Fatalf("IsOpen(s1) after close = %v, %v", open, err)
	}

	ids, err := s.OpenScheduleIDs(ctx)
	if err != nil {
		t.Fatalf("OpenScheduleIDs: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 1 || ids[0] != "s2" {
		t.Fatalf("open ids = %v, want [s2]", ids)
	}
}

func TestOpenSetMarkClosedUnknownIDIsNoop(t *testing.T) {
	s := newLocalSet(t)
	if err := s.MarkClosed(context.Background(), "never-opened"); err != nil {
		t.Fatalf("MarkClosed: %v", err)
	}
}
