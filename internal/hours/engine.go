/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/models"
)

// Behavior reacts to trigger firings and keeps agent availability in sync
// with schedule state. It is stateless between calls: "currently open" is
// re-derived from the repositories, never stored here, so a failed call
// can be retried wholesale.
//
// Callers must serialize firings for the same trigger key (at most one
// concurrent invocation per key); the engine provides no mutual exclusion
// of its own. Firings for different keys may run concurrently.
type Behavior interface {
	FindTriggerKeys(ctx context.Context) ([]TriggerKey, error)
	HandleTrigger(ctx context.Context, day, clock string) error
	OnOpen(ctx context.Context, day, clock string) error
	OnClose(ctx context.Context, day, clock string) error

	// OnDisable clears the engine marker from agents of the schedule so
	// manual status control resumes. An empty scheduleID disables every
	// active schedule (feature switched off).
	OnDisable(ctx context.Context, scheduleID string) error

	OnAgentAddedToTeam(ctx context.Context, teamID string, agentIDs []string) error
	OnAgentRemovedFromTeam(ctx context.Context, teamID string, agentIDs []string) error
	OnTeamRemoved(ctx context.Context, teamID string, agentIDs []string) error

	OnRemoveSchedule(ctx context.Context, schedule *models.Schedule) error
	OnNewAgentCreated(ctx context.Context, agentID string) error

	CanAgentChangeStatusManually(ctx context.Context, agentID string) (bool, error)
	SetAgentStatus(ctx context.Context, agentID string, status models.AgentStatus) error
}

// Engine is the concrete Behavior backed by the schedule and agent
// repositories plus the open-schedule projection.
type Engine struct {
	schedules ScheduleRepository
	agents    AgentRepository
	open      OpenProjection
	logger    zerolog.Logger

	nowFn    func() time.Time
	offsetFn func() int
}

// NewEngine creates the behavior engine.
func NewEngine(schedules ScheduleRepository, agents AgentRepository, open OpenProjection, logger zerolog.Logger) *Engine {
	return &Engine{
		schedules: schedules,
		agents:    agents,
		open:      open,
		logger:    logger.With().Str("component", "hours_engine").Logger(),
		nowFn:     time.Now,
		offsetFn:  ServerUTCOffsetHours,
	}
}

// FindTriggerKeys enumerates the deduplicated (day, time) pairs the
// external scheduler should register. Side-effect free and idempotent.
func (e *Engine) FindTriggerKeys(ctx context.Context) ([]TriggerKey, error) {
	regs, err := e.schedules.FindActiveSchedulesNeedingTriggers(ctx)
	if err != nil {
		return nil, repoErr(err)
	}
	seen := make(map[TriggerKey]struct{}, len(regs))
	keys := make([]TriggerKey, 0, len(regs))
	for _, reg := range regs {
		key := TriggerKey{Day: reg.Day, Time: reg.Time}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Time < keys[j].Time
	})
	return keys, nil
}

// HandleTrigger runs both callbacks for one firing. Opens run before
// closes so an agent straddling a simultaneous close/open never flaps to
// not_available in between.
func (e *Engine) HandleTrigger(ctx context.Context, day, clock string) error {
	if err := e.OnOpen(ctx, day, clock); err != nil {
		return err
	}
	return e.OnClose(ctx, day, clock)
}

// OnOpen marks every schedule whose start trigger matches as open and
// flips its assigned agents to available, except agents who manually set
// themselves not_available.
func (e *Engine) OnOpen(ctx context.Context, day, clock string) error {
	schedules, err := e.schedules.FindOpeningAt(ctx, day, clock)
	if err != nil {
		return repoErr(err)
	}
	for i := range schedules {
		s := &schedules[i]
		if err := e.open.MarkOpen(ctx, s.ID); err != nil {
			e.logger.Warn().Err(err).Str("schedule_id", s.ID).Msg("open projection update failed")
		}
		agents, err := e.agents.ListAssigned(ctx, s.ID)
		if err != nil {
			return repoErr(err)
		}
		for _, a := range agents {
			if err := e.agents.SetStatus(ctx, a.ID, models.StatusAvailable, true, GuardNotManuallyUnavailable); err != nil {
				return repoErr(err)
			}
		}
		e.logger.Info().Str("schedule_id", s.ID).Str("day", day).Str("time", clock).
			Int("agents", len(agents)).Msg("schedule opened")
	}
	return nil
}

// OnClose marks matching schedules closed. An agent goes not_available
// only once all of its assigned active schedules are closed, and only
// over an engine-managed status.
func (e *Engine) OnClose(ctx context.Context, day, clock string) error {
	schedules, err := e.schedules.FindClosingAt(ctx, day, clock)
	if err != nil {
		return repoErr(err)
	}
	for i := range schedules {
		s := &schedules[i]
		if err := e.open.MarkClosed(ctx, s.ID); err != nil {
			e.logger.Warn().Err(err).Str("schedule_id", s.ID).Msg("open projection update failed")
		}
		agents, err := e.agents.ListAssigned(ctx, s.ID)
		if err != nil {
			return repoErr(err)
		}
		for _, a := range agents {
			within, err := e.agents.IsWithinActiveWindow(ctx, a.ID)
			if err != nil {
				return repoErr(err)
			}
			if within {
				continue
			}
			if err := e.agents.SetStatus(ctx, a.ID, models.StatusNotAvailable, true, GuardEngineManaged); err != nil {
				return repoErr(err)
			}
		}
		e.logger.Info().Str("schedule_id", s.ID).Str("day", day).Str("time", clock).
			Int("agents", len(agents)).Msg("schedule closed")
	}
	return nil
}

// OnDisable removes the engine marker from affected agents without
// forcing a status value.
func (e *Engine) OnDisable(ctx context.Context, scheduleID string) error {
	ids := []string{scheduleID}
	if scheduleID == "" {
		regs, err := e.schedules.FindActiveSchedulesNeedingTriggers(ctx)
		if err != nil {
			return repoErr(err)
		}
		seen := map[string]struct{}{}
		ids = ids[:0]
		for _, reg := range regs {
			if _, ok := seen[reg.ScheduleID]; ok {
				continue
			}
			seen[reg.ScheduleID] = struct{}{}
			ids = append(ids, reg.ScheduleID)
		}
	}
	for _, id := range ids {
		if err := e.open.MarkClosed(ctx, id); err != nil {
			e.logger.Warn().Err(err).Str("schedule_id", id).Msg("open projection update failed")
		}
		agents, err := e.agents.ListAssigned(ctx, id)
		if err != nil {
			return repoErr(err)
		}
		agentIDs := make([]string, 0, len(agents))
		for _, a := range agents {
			agentIDs = append(agentIDs, a.ID)
		}
		if len(agentIDs) > 0 {
			if err := e.agents.ClearEngineMarker(ctx, agentIDs); err != nil {
				return repoErr(err)
			}
		}
		e.logger.Info().Str("schedule_id", id).Int("agents", len(agentIDs)).Msg("schedule disabled, manual control restored")
	}
	return nil
}

// OnAgentAddedToTeam assigns the team's schedule to the agents and
// re-derives their availability.
func (e *Engine) OnAgentAddedToTeam(ctx context.Context, teamID string, agentIDs []string) error {
	s, err := e.schedules.FindByTeam(ctx, teamID)
	if err != nil {
		return repoErr(err)
	}
	if s == nil || !s.Active {
		return nil
	}
	for _, id := range agentIDs {
		if err := e.agents.AssignSchedule(ctx, id, s.ID); err != nil {
			return repoErr(err)
		}
	}
	return e.syncAgents(ctx, agentIDs)
}

// OnAgentRemovedFromTeam unassigns the team's schedule and re-derives
// the agents' availability against what remains assigned.
func (e *Engine) OnAgentRemovedFromTeam(ctx context.Context, teamID string, agentIDs []string) error {
	s, err := e.schedules.FindByTeam(ctx, teamID)
	if err != nil {
		return repoErr(err)
	}
	if s != nil {
		if err := e.agents.UnassignSchedule(ctx, agentIDs, s.ID); err != nil {
			return repoErr(err)
		}
	}
	return e.syncAgents(ctx, agentIDs)
}

// OnTeamRemoved handles department deletion; the event payload carries
// the former member ids since the team row is going away.
func (e *Engine) OnTeamRemoved(ctx context.Context, teamID string, agentIDs []string) error {
	return e.OnAgentRemovedFromTeam(ctx, teamID, agentIDs)
}

// OnRemoveSchedule detaches the schedule from every agent and team
// referencing it. The default marker lives on the schedule row and dies
// with it.
func (e *Engine) OnRemoveSchedule(ctx context.Context, schedule *models.Schedule) error {
	if err := e.open.MarkClosed(ctx, schedule.ID); err != nil {
		e.logger.Warn().Err(err).Str("schedule_id", schedule.ID).Msg("open projection update failed")
	}
	agents, err := e.agents.ListAssigned(ctx, schedule.ID)
	if err != nil {
		return repoErr(err)
	}
	if err := e.agents.UnassignScheduleAll(ctx, schedule.ID); err != nil {
		return repoErr(err)
	}
	if err := e.schedules.DetachTeams(ctx, schedule.ID); err != nil {
		return repoErr(err)
	}
	agentIDs := make([]string, 0, len(agents))
	for _, a := range agents {
		agentIDs = append(agentIDs, a.ID)
	}
	if len(agentIDs) > 0 {
		if err := e.agents.ClearEngineMarker(ctx, agentIDs); err != nil {
			return repoErr(err)
		}
	}
	e.logger.Info().Str("schedule_id", schedule.ID).Bool("was_default", schedule.IsDefault).
		Int("agents", len(agentIDs)).Msg("schedule detached")
	return nil
}

// OnNewAgentCreated applies the default schedule to a freshly created
// agent. If the default is open right now the agent is assigned it and
// made available. If it is closed the agent is only set not_available,
// deliberately without the assignment, so the agent is not locked out of
// manual status control until the next open window.
func (e *Engine) OnNewAgentCreated(ctx context.Context, agentID string) error {
	def, err := e.schedules.FindDefault(ctx)
	if err != nil {
		return repoErr(err)
	}
	if def == nil {
		return nil
	}
	openNow, err := OpenAt(def, e.offsetFn(), e.nowFn())
	if err != nil {
		return err
	}
	if openNow {
		if err := e.agents.AssignSchedule(ctx, agentID, def.ID); err != nil {
			return repoErr(err)
		}
		if err := e.agents.SetStatus(ctx, agentID, models.StatusAvailable, true, GuardNone); err != nil {
			return repoErr(err)
		}
		e.logger.Info().Str("agent_id", agentID).Str("schedule_id", def.ID).Msg("new agent inside default hours")
		return nil
	}
	if err := e.agents.SetStatus(ctx, agentID, models.StatusNotAvailable, true, GuardNone); err != nil {
		return repoErr(err)
	}
	e.logger.Info().Str("agent_id", agentID).Str("schedule_id", def.ID).Msg("new agent outside default hours")
	return nil
}

// CanAgentChangeStatusManually is true only while the agent is outside
// all of its assigned active schedules' open windows.
func (e *Engine) CanAgentChangeStatusManually(ctx context.Context, agentID string) (bool, error) {
	within, err := e.agents.IsWithinActiveWindow(ctx, agentID)
	if err != nil {
		return false, repoErr(err)
	}
	return !within, nil
}

// SetAgentStatus writes an engine-managed status. Re-writing the
// engine-managed not_available default is short-circuited to avoid
// redundant repository writes at scale.
func (e *Engine) SetAgentStatus(ctx context.Context, agentID string, status models.AgentStatus) error {
	agent, err := e.agents.Get(ctx, agentID)
	if err != nil {
		return repoErr(err)
	}
	if agent.StatusSetByEngine && agent.Status == models.StatusNotAvailable && status == models.StatusNotAvailable {
		return nil
	}
	return repoErr(e.agents.SetStatus(ctx, agentID, status, true, GuardNone))
}

// syncAgents re-derives each agent's availability from its current
// assignments: available inside a window (manual offline wins), otherwise
// not_available over engine-managed state only.
func (e *Engine) syncAgents(ctx context.Context, agentIDs []string) error {
	for _, id := range agentIDs {
		within, err := e.agents.IsWithinActiveWindow(ctx, id)
		if err != nil {
			return repoErr(err)
		}
		if within {
			if err := e.agents.SetStatus(ctx, id, models.StatusAvailable, true, GuardNotManuallyUnavailable); err != nil {
				return repoErr(err)
			}
			continue
		}
		if err := e.agents.SetStatus(ctx, id, models.StatusNotAvailable, true, GuardEngineManaged); err != nil {
			return repoErr(err)
		}
	}
	return nil
}
