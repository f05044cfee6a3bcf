/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/models"
)

func newTestEditor(schedules *fakeSchedules, behavior Behavior) *ScheduleEditor {
	ed := NewScheduleEditor(schedules, behavior, zerolog.Nop())
	ed.offsetFn = func() int { return 0 }
	return ed
}

func TestSaveNormalizesEveryWindow(t *testing.T) {
	schedules := newFakeSchedules()
	ed := newTestEditor(schedules, &fakeBehavior{})

	// Empty timezone with offset zero keeps the conversion deterministic:
	// UTC equals the authored clocks.
	draft := &models.Schedule{
		Name:   "support",
		Active: true,
		Windows: []models.ScheduleWindow{
			window("Monday", true, "09:00", "17:00"),
			window("Saturday", false, "00:00", "00:00"),
		},
	}

	id, err := ed.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated schedule id")
	}
	if draft.Kind != models.KindShared {
		t.Fatalf("kind = %q, want default shared", draft.Kind)
	}

	if len(schedules.upserted) != 1 {
		t.Fatalf("upserts = %d, want 1", len(schedules.upserted))
	}
	saved := schedules.upserted[0]
	mon := saved.Window("Monday")
	if mon == nil {
		t.Fatal("Monday window missing after save")
	}
	if mon.ID == "" || mon.ScheduleID != id {
		t.Fatalf("window not keyed to schedule: %+v", mon)
	}
	if mon.Start.UTCTime != "09:00" || mon.Start.TriggerTime != "09:00" {
		t.Fatalf("window not normalized: %+v", mon.Start)
	}
	if mon.Start.UTCDay != "Monday" || mon.Finish.UTCDay != "Monday" {
		t.Fatalf("window days not derived: %+v", mon)
	}
}

func TestSaveRejectsDuplicateDayWithoutPersisting(t *testing.T) {
	schedules := newFakeSchedules()
	ed := newTestEditor(schedules, &fakeBehavior{})

	draft := &models.Schedule{
		Name: "support",
		Windows: []models.ScheduleWindow{
			window("Monday", true, "09:00", "17:00"),
			window("Monday", true, "18:00", "20:00"),
		},
	}

	_, err := ed.Save(context.Background(), draft)
	var v *ValidationError
	if !errors.As(err, &v) || v.Code != CodeDuplicateWindowDay {
		t.Fatalf("err = %v, want %s", err, CodeDuplicateWindowDay)
	}
	if len(schedules.upserted) != 0 {
		t.Fatal("invalid draft was persisted")
	}
}

func TestSaveFailsWholeDraftOnOneBadWindow(t *testing.T) {
	schedules := newFakeSchedules()
	ed := newTestEditor(schedules, &fakeBehavior{})

	draft := &models.Schedule{
		Name: "support",
		Windows: []models.ScheduleWindow{
			window("Monday", true, "09:00", "17:00"),
			window("Tuesday", true, "17:00", "09:00"),
		},
	}

	_, err := ed.Save(context.Background(), draft)
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation rejection", err)
	}
	if len(schedules.upserted) != 0 {
		t.Fatal("draft with one invalid window was persisted")
	}
}

func TestRemoveByIDRunsBehaviorBeforeDelete(t *testing.T) {
	schedules := newFakeSchedules()
	behavior := &fakeBehavior{}
	ed := newTestEditor(schedules, behavior)

	schedules.schedules["s1"] = &models.Schedule{ID: "s1"}

	if err := ed.RemoveByID(context.Background(), "s1"); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if len(behavior.removedSchedules) != 1 || behavior.removedSchedules[0] != "s1" {
		t.Fatalf("behavior not invoked: %v", behavior.removedSchedules)
	}
	if len(schedules.deleted) != 1 || schedules.deleted[0] != "s1" {
		t.Fatalf("schedule not deleted: %v", schedules.deleted)
	}
}

func TestRemoveByIDUnknownSchedule(t *testing.T) {
	ed := newTestEditor(newFakeSchedules(), &fakeBehavior{})
	if err := ed.RemoveByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTeamEditorForcesKindAndStripsDefault(t *testing.T) {
	schedules := newFakeSchedules()
	team := NewTeamEditor(newTestEditor(schedules, &fakeBehavior{}))

	draft := &models.Schedule{
		Name:      "night shift",
		Kind:      models.KindShared,
		IsDefault: true,
		Windows:   []models.ScheduleWindow{window("Monday", true, "22:00", "23:00")},
	}

	if _, err := team.Save(context.Background(), draft); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if draft.Kind != models.KindTeam {
		t.Fatalf("kind = %q, want team", draft.Kind)
	}
	if draft.IsDefault {
		t.Fatal("team schedule kept the default marker")
	}
}
