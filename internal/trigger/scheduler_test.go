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
	"github.com/friendsincode/vakt/internal/hours"
	"github.com/friendsincode/vakt/internal/models"
)

type fakeEngine struct {
	mu   sync.Mutex
	keys []hours.TriggerKey

	handled []hours.TriggerKey
}

func (f *fakeEngine) FindTriggerKeys(context.Context) ([]hours.TriggerKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hours.TriggerKey(nil), f.keys...), nil
}

func (f *fakeEngine) HandleTrigger(_ context.Context, day, clock string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handled = append(f.handled, hours.TriggerKey{Day: day, Time: clock})
	return nil
}

func (f *fakeEngine) OnOpen(context.Context, string, string) error               { return nil }
func (f *fakeEngine) OnClose(context.Context, string, string) error              { return nil }
func (f *fakeEngine) OnDisable(context.Context, string) error                    { return nil }
func (f *fakeEngine) OnAgentAddedToTeam(context.Context, string, []string) error { return nil }
func (f *fakeEngine) OnAgentRemovedFromTeam(context.Context, string, []string) error {
	return nil
}
func (f *fakeEngine) OnTeamRemoved(context.Context, string, []string) error { return nil }
func (f *fakeEngine) OnRemoveSchedule(context.Context, *models.Schedule) error {
	return nil
}
func (f *fakeEngine) OnNewAgentCreated(context.Context, string) error { return nil }
func (f *fakeEngine) CanAgentChangeStatusManually(context.Context, string) (bool, error) {
	return false, nil
}
func (f *fakeEngine) SetAgentStatus(context.Context, string, models.AgentStatus) error {
	return nil
}

func TestCronSpec(t *testing.T) {
	cases := []struct {
		key  hours.TriggerKey
		want string
	}{
		{hours.TriggerKey{Day: "Monday", Time: "08:00"}, "0 8 * * 1"},
		{hours.TriggerKey{Day: "Sunday", Time: "00:30"}, "30 0 * * 0"},
		{hours.TriggerKey{Day: "Saturday", Time: "23:59"}, "59 23 * * 6"},
	}
	for _, tc := range cases {
		got, err := cronSpec(tc.key)
		if err != nil {
			t.Fatalf("cronSpec(%v): %v", tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("cronSpec(%v) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestCronSpecRejectsBadKeys(t *testing.T) {
	if _, err := cronSpec(hours.TriggerKey{Day: "Someday", Time: "08:00"}); err == nil {
		t.Fatal("unknown weekday accepted")
	}
	if _, err := cronSpec(hours.TriggerKey{Day: "Monday", Time: "24:00"}); err == nil {
		t.Fatal("invalid clock accepted")
	}
}

func TestRefreshDiffsEntries(t *testing.T) {
	engine := &fakeEngine{keys: []hours.TriggerKey{
		{Day: "Monday", Time: "08:00"},
		{Day: "Monday", Time: "16:00"},
	}}
	s := New(engine, events.NewBus(), time.Minute, zerolog.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(s.entries))
	}
	firstID, ok := s.entries[hours.TriggerKey{Day: "Monday", Time: "08:00"}]
	if !ok {
		t.Fatal("expected entry for Monday 08:00")
	}

	// Drop one key, keep the other; the surviving entry must not be
	// re-registered.
	engine.mu.Lock()
	engine.keys = []hours.TriggerKey{{Day: "Monday", Time: "08:00"}}
	engine.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.entries) != 1 {
		t.Fatalf("entries = %d, want 1 after diff", len(s.entries))
	}
	if got := s.entries[hours.TriggerKey{Day: "Monday", Time: "08:00"}]; got != firstID {
		t.Fatalf("surviving entry was re-registered: %v != %v", got, firstID)
	}
}

func TestRefreshSkipsUnparseableKeys(t *testing.T) {
	engine := &fakeEngine{keys: []hours.TriggerKey{
		{Day: "Funday", Time: "08:00"},
		{Day: "Monday", Time: "08:00"},
	}}
	s := New(engine, events.NewBus(), time.Minute, zerolog.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.entries) != 1 {
		t.Fatalf("entries = %d, want 1 valid entry", len(s.entries))
	}
}

func TestFirePublishesEvent(t *testing.T) {
	engine := &fakeEngine{}
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventTriggerFired)

	s := New(engine, bus, time.Minute, zerolog.Nop())
	s.fire(hours.TriggerKey{Day: "Monday", Time: "08:00"})

	engine.mu.Lock()
	if len(engine.handled) != 1 || engine.handled[0].Day != "Monday" {
		engine.mu.Unlock()
		t.Fatalf("engine not invoked: %v", engine.handled)
	}
	engine.mu.Unlock()

	select {
	case p := <-sub:
		if p["day"] != "Monday" || p["time"] != "08:00" {
			t.Fatalf("unexpected payload: %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("trigger.fired event not published")
	}
}

// A pinned offset override must move the cron clock together with the
// trigger keys derived under it: with override +3, a window opening
// Monday 08:00 UTC carries the key Monday 11:00, and the cron runner has
// to read 11:00 at that same instant regardless of the process zone.
func TestCronLocationTracksServerOffset(t *testing.T) {
	hours.OverrideServerUTCOffset(3)

	s := New(&fakeEngine{}, events.NewBus(), time.Minute, zerolog.Nop())

	utc := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC) // a Monday
	if got := utc.In(s.cron.Location()).Format("Monday 15:04"); got != "Monday 11:00" {
		t.Fatalf("cron clock reads %q at Monday 08:00 UTC, want %q", got, "Monday 11:00")
	}

	_, secs := utc.In(s.cron.Location()).Zone()
	if want := hours.ServerUTCOffsetHours() * 3600; secs != want {
		t.Fatalf("cron zone offset = %ds, want %ds", secs, want)
	}
}
