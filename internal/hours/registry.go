/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"context"
	"sync"

	"github.com/friendsincode/vakt/internal/models"
)

// Strategies bundles the editor and behavior serving one schedule kind.
type Strategies struct {
	Editor   Editor
	Behavior Behavior
}

// Registry dispatches schedule operations by kind. The set of kinds is
// closed; unknown kinds fall back to the shared strategies.
type Registry struct {
	mu     sync.RWMutex
	byKind map[models.ScheduleKind]Strategies
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[models.ScheduleKind]Strategies)}
}

// Register installs the strategies for a kind.
func (r *Registry) Register(kind models.ScheduleKind, s Strategies) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[kind] = s
}

// For returns the strategies for a kind, falling back to KindShared.
func (r *Registry) For(kind models.ScheduleKind) Strategies {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byKind[kind]; ok {
		return s
	}
	return r.byKind[models.KindShared]
}

// TeamEditor wraps an editor with team-kind constraints: a team schedule
// can never be the platform default.
type TeamEditor struct {
	inner Editor
}

// NewTeamEditor wraps the shared editor for team schedules.
func NewTeamEditor(inner Editor) *TeamEditor {
	return &TeamEditor{inner: inner}
}

// Save forces the team kind and strips the default marker before
// delegating.
func (t *TeamEditor) Save(ctx context.Context, draft *models.Schedule) (string, error) {
	draft.Kind = models.KindTeam
	draft.IsDefault = false
	return t.inner.Save(ctx, draft)
}

// GetByID delegates to the shared editor.
func (t *TeamEditor) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	return t.inner.GetByID(ctx, id)
}

// RemoveByID delegates to the shared editor.
func (t *TeamEditor) RemoveByID(ctx context.Context, id string) error {
	return t.inner.RemoveByID(ctx, id)
}
