/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/events"
)

type fakeElection struct {
	mu      sync.Mutex
	leader  bool
	stopped bool
	ch      chan bool
}

func newFakeElection() *fakeElection {
	return &fakeElection{ch: make(chan bool)}
}

func (f *fakeElection) Start(context.Context) error { return nil }

func (f *fakeElection) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeElection) IsLeader() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leader
}

func (f *fakeElection) LeaderCh() <-chan bool { return f.ch }

func (f *fakeElection) setLeader(v bool) {
	f.mu.Lock()
	f.leader = v
	f.mu.Unlock()
	f.ch <- v
}

func schedulerRunning(la *LeaderAware) bool {
	la.mu.Lock()
	defer la.mu.Unlock()
	return la.running
}

func waitForRunning(t *testing.T, la *LeaderAware, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if schedulerRunning(la) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scheduler running = %v, want %v", schedulerRunning(la), want)
}

// The monitor goroutine and the caller's Stop both transition the
// scheduler; flipping leadership while stopping from the caller's side
// must stay race-free and leave the scheduler stopped.
func TestLeaderAwareFollowsLeadership(t *testing.T) {
	election := newFakeElection()
	s := New(&fakeEngine{}, events.NewBus(), time.Minute, zerolog.Nop())
	la := NewLeaderAware(s, election, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := la.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	election.setLeader(true)
	waitForRunning(t, la, true)

	election.setLeader(false)
	waitForRunning(t, la, false)

	// Regain leadership, then shut down mid-term.
	election.setLeader(true)
	waitForRunning(t, la, true)

	if err := la.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if schedulerRunning(la) {
		t.Fatal("scheduler still running after Stop")
	}
	if !election.stopped {
		t.Fatal("election not released on Stop")
	}
}
