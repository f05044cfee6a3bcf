/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"context"

	"github.com/friendsincode/vakt/internal/models"
)

// TriggerKey identifies a recurring trigger in the server's local
// representation: weekday name plus "HH:MM".
type TriggerKey struct {
	Day  string
	Time string
}

// TriggerRegistration is one (schedule, day, time) row from the query
// enumerating triggers that need registering.
type TriggerRegistration struct {
	ScheduleID string
	Day        string
	Time       string
}

// ScheduleRepository is the persistence boundary for schedule records.
// Implementations live in internal/store; test doubles live next to the
// engine tests.
type ScheduleRepository interface {
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Upsert(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error

	// FindDefault returns the fallback schedule for newly created agents,
	// or (nil, nil) when none is marked.
	FindDefault(ctx context.Context) (*models.Schedule, error)

	// FindActiveSchedulesNeedingTriggers enumerates every start and finish
	// trigger (day, time) pair across all active schedules' open windows.
	FindActiveSchedulesNeedingTriggers(ctx context.Context) ([]TriggerRegistration, error)

	// FindOpeningAt returns active schedules with an open window whose
	// start trigger matches (day, clock). FindClosingAt is symmetric for
	// finish triggers.
	FindOpeningAt(ctx context.Context, day, clock string) ([]models.Schedule, error)
	FindClosingAt(ctx context.Context, day, clock string) ([]models.Schedule, error)

	// FindByTeam returns the schedule associated with a team, or
	// (nil, nil) when the team has none.
	FindByTeam(ctx context.Context, teamID string) (*models.Schedule, error)

	// DetachTeams clears the schedule association from every team
	// referencing it.
	DetachTeams(ctx context.Context, scheduleID string) error
}

// StatusGuard constrains a conditional agent-status write. Guards are
// evaluated inside a single atomic update so concurrent trigger firings
// and manual changes cannot interleave into a lost update.
type StatusGuard int

const (
	// GuardNone writes unconditionally.
	GuardNone StatusGuard = iota
	// GuardNotManuallyUnavailable skips agents whose stored status is a
	// manual not_available (engine marker absent).
	GuardNotManuallyUnavailable
	// GuardEngineManaged writes only over an engine-managed status.
	GuardEngineManaged
)

// AgentRepository is the persistence boundary for the agent facets this
// engine owns: schedule assignments, live status, and the engine marker.
type AgentRepository interface {
	Get(ctx context.Context, id string) (*models.Agent, error)

	AssignSchedule(ctx context.Context, agentID, scheduleID string) error
	UnassignSchedule(ctx context.Context, agentIDs []string, scheduleID string) error
	UnassignScheduleAll(ctx context.Context, scheduleID string) error
	UnassignAllSchedules(ctx context.Context, agentIDs []string) error

	// ListAssigned returns every agent assigned to the schedule.
	ListAssigned(ctx context.Context, scheduleID string) ([]models.Agent, error)

	// SetStatus performs a guarded conditional write of status and the
	// engine marker. A write blocked by its guard is not an error.
	SetStatus(ctx context.Context, agentID string, status models.AgentStatus, setByEngine bool, guard StatusGuard) error

	// ClearEngineMarker drops the engine marker without touching the
	// current status value.
	ClearEngineMarker(ctx context.Context, agentIDs []string) error

	// IsWithinActiveWindow reports whether the agent is currently inside
	// an open window of any of its assigned active schedules.
	IsWithinActiveWindow(ctx context.Context, agentID string) (bool, error)
}

// OpenProjection is the queryable "currently open" fact maintained as
// schedules open and close. Backed by Redis in internal/cache.
type OpenProjection interface {
	MarkOpen(ctx context.Context, scheduleID string) error
	MarkClosed(ctx context.Context, scheduleID string) error
}
