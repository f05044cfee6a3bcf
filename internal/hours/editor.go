/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/models"
	"github.com/friendsincode/vakt/internal/telemetry"
)

// Editor is the single gate through which schedule mutations flow.
type Editor interface {
	// Save normalizes every window and upserts the schedule, returning
	// its id. If any window fails validation nothing is persisted.
	Save(ctx context.Context, draft *models.Schedule) (string, error)
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	// RemoveByID deletes the schedule after running the behavior's
	// detachment side effects.
	RemoveByID(ctx context.Context, id string) error
}

// ScheduleEditor is the concrete Editor.
type ScheduleEditor struct {
	schedules ScheduleRepository
	behavior  Behavior
	logger    zerolog.Logger

	offsetFn func() int
}

// NewScheduleEditor creates the schedule edit gate.
func NewScheduleEditor(schedules ScheduleRepository, behavior Behavior, logger zerolog.Logger) *ScheduleEditor {
	return &ScheduleEditor{
		schedules: schedules,
		behavior:  behavior,
		logger:    logger.With().Str("component", "schedule_editor").Logger(),
		offsetFn:  ServerUTCOffsetHours,
	}
}

// Save validates and normalizes all windows before anything is written,
// so a schedule is never partially persisted.
func (ed *ScheduleEditor) Save(ctx context.Context, draft *models.Schedule) (string, error) {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.Kind == "" {
		draft.Kind = models.KindShared
	}

	offset := ed.offsetFn()
	seen := make(map[string]struct{}, len(draft.Windows))
	normalized := make([]models.ScheduleWindow, 0, len(draft.Windows))
	for _, w := range draft.Windows {
		if _, dup := seen[w.Day]; dup {
			telemetry.ScheduleSaves.WithLabelValues(CodeDuplicateWindowDay).Inc()
			return "", &ValidationError{Code: CodeDuplicateWindowDay, Day: w.Day}
		}
		seen[w.Day] = struct{}{}

		nw, err := Normalize(w, draft.Timezone, offset)
		if err != nil {
			var v *ValidationError
			if errors.As(err, &v) {
				telemetry.ScheduleSaves.WithLabelValues(v.Code).Inc()
			}
			return "", err
		}
		if nw.ID == "" {
			nw.ID = uuid.New().String()
		}
		nw.ScheduleID = draft.ID
		normalized = append(normalized, nw)
	}
	draft.Windows = normalized

	if err := ed.schedules.Upsert(ctx, draft); err != nil {
		return "", repoErr(err)
	}
	telemetry.ScheduleSaves.WithLabelValues("ok").Inc()
	ed.logger.Info().Str("schedule_id", draft.ID).Str("kind", string(draft.Kind)).
		Bool("active", draft.Active).Int("windows", len(normalized)).Msg("schedule saved")
	return draft.ID, nil
}

// GetByID is a thin pass-through to the repository.
func (ed *ScheduleEditor) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	s, err := ed.schedules.Get(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	return s, nil
}

// RemoveByID runs detachment side effects first so no agent or team is
// left referencing a deleted schedule.
func (ed *ScheduleEditor) RemoveByID(ctx context.Context, id string) error {
	s, err := ed.schedules.Get(ctx, id)
	if err != nil {
		return repoErr(err)
	}
	if err := ed.behavior.OnRemoveSchedule(ctx, s); err != nil {
		return err
	}
	if err := ed.schedules.Delete(ctx, id); err != nil {
		return repoErr(err)
	}
	ed.logger.Info().Str("schedule_id", id).Msg("schedule removed")
	return nil
}
