/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus over NATS so every
// instance sees agent and schedule lifecycle events.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/vakt/internal/events"
)

const subjectPrefix = "vakt.events."

// Config contains NATS connection configuration.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns default NATS configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// message is the wire form of a bridged event.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Bridge publishes local events to NATS and republishes remote events
// into the local bus. It satisfies events.Publisher, so components that
// publish through the bridge reach both local and remote subscribers.
type Bridge struct {
	conn   *nats.Conn
	local  *events.Bus
	sub    *nats.Subscription
	logger zerolog.Logger
	nodeID string
}

// NewBridge connects to NATS and starts relaying events into the local
// bus.
func NewBridge(cfg Config, local *events.Bus, logger zerolog.Logger) (*Bridge, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	b := &Bridge{
		local:  local,
		logger: logger.With().Str("component", "event_bridge").Logger(),
		nodeID: nodeID(),
	}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b.conn = conn

	sub, err := conn.Subscribe(subjectPrefix+">", b.handleRemote)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to event subjects: %w", err)
	}
	b.sub = sub

	b.logger.Info().Str("url", cfg.URL).Str("node_id", b.nodeID).Msg("event bridge connected")
	return b, nil
}

// Publish delivers the event locally and to every other instance.
func (b *Bridge) Publish(eventType events.EventType, payload events.Payload) {
	b.local.Publish(eventType, payload)

	msg := message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    b.nodeID,
		MessageID: uuid.New().String(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("marshal bridged event")
		return
	}
	if err := b.conn.Publish(subjectPrefix+string(eventType), data); err != nil {
		b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("publish bridged event")
	}
}

// handleRemote republishes events from other instances into the local
// bus. Events originating here are skipped so subscribers see each
// event once.
func (b *Bridge) handleRemote(m *nats.Msg) {
	var msg message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		b.logger.Warn().Err(err).Str("subject", m.Subject).Msg("drop malformed bridged event")
		return
	}
	if msg.NodeID == b.nodeID {
		return
	}
	b.local.Publish(msg.EventType, msg.Payload)
}

// Close drains the subscription and closes the connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Drain()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.New().String()
	}
	return host + "-" + uuid.New().String()[:8]
}
