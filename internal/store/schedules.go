/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store provides the GORM-backed repository implementations.
package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vakt/internal/hours"
	"github.com/friendsincode/vakt/internal/models"
)

// ScheduleStore implements hours.ScheduleRepository.
type ScheduleStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewScheduleStore creates the schedule repository.
func NewScheduleStore(db *gorm.DB, logger zerolog.Logger) *ScheduleStore {
	return &ScheduleStore{
		db:     db,
		logger: logger.With().Str("component", "schedule_store").Logger(),
	}
}

// Get loads a schedule with its windows and teams.
func (st *ScheduleStore) Get(ctx context.Context, id string) (*models.Schedule, error) {
	var s models.Schedule
	err := st.db.WithContext(ctx).
		Preload("Windows").
		Preload("Teams").
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hours.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes the schedule and replaces its window set in one
// transaction, so readers never see a partially normalized schedule.
func (st *ScheduleStore) Upsert(ctx context.Context, schedule *models.Schedule) error {
	return st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		windows := schedule.Windows
		if err := tx.Omit("Windows", "Teams").Save(schedule).Error; err != nil {
			return err
		}
		if err := tx.Where("schedule_id = ?", schedule.ID).Delete(&models.ScheduleWindow{}).Error; err != nil {
			return err
		}
		if len(windows) > 0 {
			if err := tx.Create(&windows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the schedule, its windows, and its assignment rows.
func (st *ScheduleStore) Delete(ctx context.Context, id string) error {
	return st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", id).Delete(&models.ScheduleWindow{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM agent_schedules WHERE schedule_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Schedule{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return hours.ErrNotFound
		}
		return nil
	})
}

// FindDefault returns the fallback schedule, or nil when none is marked.
func (st *ScheduleStore) FindDefault(ctx context.Context) (*models.Schedule, error) {
	var s models.Schedule
	err := st.db.WithContext(ctx).
		Preload("Windows").
		First(&s, "is_default = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindActiveSchedulesNeedingTriggers emits one registration per window
// edge (start and finish) across all active schedules' open windows.
func (st *ScheduleStore) FindActiveSchedulesNeedingTriggers(ctx context.Context) ([]hours.TriggerRegistration, error) {
	var windows []models.ScheduleWindow
	err := st.db.WithContext(ctx).
		Joins("JOIN schedules ON schedules.id = schedule_windows.schedule_id").
		Where("schedules.active = ? AND schedule_windows.open = ?", true, true).
		Find(&windows).Error
	if err != nil {
		return nil, err
	}

	regs := make([]hours.TriggerRegistration, 0, len(windows)*2)
	for _, w := range windows {
		regs = append(regs,
			hours.TriggerRegistration{ScheduleID: w.ScheduleID, Day: w.Start.TriggerDay, Time: w.Start.TriggerTime},
			hours.TriggerRegistration{ScheduleID: w.ScheduleID, Day: w.Finish.TriggerDay, Time: w.Finish.TriggerTime},
		)
	}
	return regs, nil
}

// FindOpeningAt returns active schedules with an open window starting at
// the given server-local trigger key.
func (st *ScheduleStore) FindOpeningAt(ctx context.Context, day, clock string) ([]models.Schedule, error) {
	return st.findByTrigger(ctx, "start_trigger_day", "start_trigger_time", day, clock)
}

// FindClosingAt returns active schedules with an open window finishing at
// the given server-local trigger key.
func (st *ScheduleStore) FindClosingAt(ctx context.Context, day, clock string) ([]models.Schedule, error) {
	return st.findByTrigger(ctx, "finish_trigger_day", "finish_trigger_time", day, clock)
}

func (st *ScheduleStore) findByTrigger(ctx context.Context, dayCol, timeCol, day, clock string) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := st.db.WithContext(ctx).
		Distinct("schedules.*").
		Joins("JOIN schedule_windows sw ON sw.schedule_id = schedules.id").
		Where("schedules.active = ? AND sw.open = ? AND sw."+dayCol+" = ? AND sw."+timeCol+" = ?",
			true, true, day, clock).
		Preload("Windows").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// FindByTeam returns the schedule associated with a team, or nil when
// the team has none.
func (st *ScheduleStore) FindByTeam(ctx context.Context, teamID string) (*models.Schedule, error) {
	var team models.Team
	err := st.db.WithContext(ctx).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if team.ScheduleID == nil {
		return nil, nil
	}
	s, err := st.Get(ctx, *team.ScheduleID)
	if errors.Is(err, hours.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// DetachTeams clears the schedule association from every referencing team.
func (st *ScheduleStore) DetachTeams(ctx context.Context, scheduleID string) error {
	return st.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("schedule_id = ?", scheduleID).
		Update("schedule_id", nil).Error
}
