/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/events"
)

const hookTimeout = 30 * time.Second

// Hooks adapts lifecycle events from the bus onto behavior and editor
// operations. No logic of its own beyond argument shaping.
type Hooks struct {
	bus      *events.Bus
	registry *Registry
	logger   zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHooks creates the lifecycle hook adapter.
func NewHooks(bus *events.Bus, registry *Registry, logger zerolog.Logger) *Hooks {
	return &Hooks{
		bus:      bus,
		registry: registry,
		logger:   logger.With().Str("component", "lifecycle_hooks").Logger(),
	}
}

// Start subscribes to the lifecycle event types and dispatches until the
// context is cancelled or Stop is called.
func (h *Hooks) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	h.consume(ctx, events.EventAgentCreated, h.onAgentCreated)
	h.consume(ctx, events.EventAgentAddedToTeam, h.onAgentAddedToTeam)
	h.consume(ctx, events.EventAgentRemovedFromTeam, h.onAgentRemovedFromTeam)
	h.consume(ctx, events.EventTeamRemoved, h.onTeamRemoved)
	h.consume(ctx, events.EventScheduleSaved, h.onScheduleSaved)
	h.consume(ctx, events.EventScheduleRemoved, h.onScheduleRemoved)
	h.consume(ctx, events.EventHoursDisabled, h.onHoursDisabled)
}

// Stop cancels dispatching and waits for in-flight handlers.
func (h *Hooks) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

func (h *Hooks) consume(ctx context.Context, eventType events.EventType, handle func(ctx context.Context, p events.Payload) error) {
	sub := h.bus.Subscribe(eventType)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub:
				if !ok {
					return
				}
				callCtx, cancel := context.WithTimeout(ctx, hookTimeout)
				if err := handle(callCtx, payload); err != nil {
					h.logger.Error().Err(err).Str("event", string(eventType)).Msg("lifecycle hook failed")
				}
				cancel()
			}
		}
	}()
}

func (h *Hooks) shared() Strategies {
	return h.registry.For("")
}

func (h *Hooks) onAgentCreated(ctx context.Context, p events.Payload) error {
	return h.shared().Behavior.OnNewAgentCreated(ctx, payloadString(p, "agent_id"))
}

func (h *Hooks) onAgentAddedToTeam(ctx context.Context, p events.Payload) error {
	return h.shared().Behavior.OnAgentAddedToTeam(ctx, payloadString(p, "team_id"), payloadStrings(p, "agent_ids"))
}

func (h *Hooks) onAgentRemovedFromTeam(ctx context.Context, p events.Payload) error {
	return h.shared().Behavior.OnAgentRemovedFromTeam(ctx, payloadString(p, "team_id"), payloadStrings(p, "agent_ids"))
}

func (h *Hooks) onTeamRemoved(ctx context.Context, p events.Payload) error {
	return h.shared().Behavior.OnTeamRemoved(ctx, payloadString(p, "team_id"), payloadStrings(p, "agent_ids"))
}

// onScheduleSaved reacts only to deactivation; activation takes effect at
// the next trigger refresh.
func (h *Hooks) onScheduleSaved(ctx context.Context, p events.Payload) error {
	if active, ok := p["active"].(bool); ok && !active {
		return h.shared().Behavior.OnDisable(ctx, payloadString(p, "schedule_id"))
	}
	return nil
}

func (h *Hooks) onScheduleRemoved(ctx context.Context, p events.Payload) error {
	return h.shared().Editor.RemoveByID(ctx, payloadString(p, "schedule_id"))
}

func (h *Hooks) onHoursDisabled(ctx context.Context, p events.Payload) error {
	return h.shared().Behavior.OnDisable(ctx, "")
}

func payloadString(p events.Payload, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadStrings(p events.Payload, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
