/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vakt/internal/hours"
	"github.com/friendsincode/vakt/internal/models"
	"github.com/friendsincode/vakt/internal/telemetry"
)

// AgentStore implements hours.AgentRepository.
type AgentStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewAgentStore creates the agent repository.
func NewAgentStore(db *gorm.DB, logger zerolog.Logger) *AgentStore {
	return &AgentStore{
		db:     db,
		logger: logger.With().Str("component", "agent_store").Logger(),
	}
}

// Get loads an agent by id.
func (st *AgentStore) Get(ctx context.Context, id string) (*models.Agent, error) {
	var a models.Agent
	err := st.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hours.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AssignSchedule inserts the assignment row if not already present.
func (st *AgentStore) AssignSchedule(ctx context.Context, agentID, scheduleID string) error {
	var count int64
	err := st.db.WithContext(ctx).
		Table("agent_schedules").
		Where("agent_id = ? AND schedule_id = ?", agentID, scheduleID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return st.db.WithContext(ctx).
		Exec("INSERT INTO agent_schedules (agent_id, schedule_id) VALUES (?, ?)", agentID, scheduleID).Error
}

// UnassignSchedule removes one schedule from the given agents.
func (st *AgentStore) UnassignSchedule(ctx context.Context, agentIDs []string, scheduleID string) error {
	if len(agentIDs) == 0 {
		return nil
	}
	return st.db.WithContext(ctx).
		Exec("DELETE FROM agent_schedules WHERE schedule_id = ? AND agent_id IN ?", scheduleID, agentIDs).Error
}

// UnassignScheduleAll detaches the schedule from every agent.
func (st *AgentStore) UnassignScheduleAll(ctx context.Context, scheduleID string) error {
	return st.db.WithContext(ctx).
		Exec("DELETE FROM agent_schedules WHERE schedule_id = ?", scheduleID).Error
}

// UnassignAllSchedules removes every schedule assignment from the agents.
func (st *AgentStore) UnassignAllSchedules(ctx context.Context, agentIDs []string) error {
	if len(agentIDs) == 0 {
		return nil
	}
	return st.db.WithContext(ctx).
		Exec("DELETE FROM agent_schedules WHERE agent_id IN ?", agentIDs).Error
}

// ListAssigned returns every agent assigned to the schedule.
func (st *AgentStore) ListAssigned(ctx context.Context, scheduleID string) ([]models.Agent, error) {
	var agents []models.Agent
	err := st.db.WithContext(ctx).
		Joins("JOIN agent_schedules ON agent_schedules.agent_id = agents.id").
		Where("agent_schedules.schedule_id = ?", scheduleID).
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// SetStatus writes status and the engine marker as a single conditional
// UPDATE. The guard rides in the WHERE clause so concurrent open/close
// firings racing a manual change cannot produce a lost update.
func (st *AgentStore) SetStatus(ctx context.Context, agentID string, status models.AgentStatus, setByEngine bool, guard hours.StatusGuard) error {
	q := st.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agentID)

	switch guard {
	case hours.GuardNotManuallyUnavailable:
		q = q.Where("NOT (status = ? AND status_set_by_engine = ?)", models.StatusNotAvailable, false)
	case hours.GuardEngineManaged:
		q = q.Where("status_set_by_engine = ?", true)
	}

	res := q.Updates(map[string]any{
		"status":               status,
		"status_set_by_engine": setByEngine,
		"updated_at":           time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		telemetry.AgentStatusWrites.WithLabelValues(string(status)).Inc()
	} else {
		st.logger.Debug().Str("agent_id", agentID).Str("status", string(status)).Msg("status write blocked by guard")
	}
	return nil
}

// ClearEngineMarker drops the engine marker, leaving status untouched.
func (st *AgentStore) ClearEngineMarker(ctx context.Context, agentIDs []string) error {
	if len(agentIDs) == 0 {
		return nil
	}
	return st.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id IN ?", agentIDs).
		Update("status_set_by_engine", false).Error
}

// IsWithinActiveWindow re-derives whether the agent is currently inside
// an open window of any assigned active schedule.
func (st *AgentStore) IsWithinActiveWindow(ctx context.Context, agentID string) (bool, error) {
	var schedules []models.Schedule
	err := st.db.WithContext(ctx).
		Joins("JOIN agent_schedules ON agent_schedules.schedule_id = schedules.id").
		Where("agent_schedules.agent_id = ? AND schedules.active = ?", agentID, true).
		Preload("Windows").
		Find(&schedules).Error
	if err != nil {
		return false, err
	}

	now := time.Now()
	offset := hours.ServerUTCOffsetHours()
	for i := range schedules {
		open, err := hours.OpenAt(&schedules[i], offset, now)
		if err != nil {
			return false, err
		}
		if open {
			return true, nil
		}
	}
	return false, nil
}
