/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry provides Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the application's own prometheus registry, served by the
// ops endpoint.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// TriggerFirings counts trigger callback invocations by result.
var TriggerFirings = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vakt",
	Subsystem: "trigger",
	Name:      "firings_total",
	Help:      "Trigger firings handled, labelled by result",
}, []string{"result"})

// RegisteredTriggers tracks how many recurring trigger entries are
// currently registered with the cron runner.
var RegisteredTriggers = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "vakt",
	Subsystem: "trigger",
	Name:      "registered",
	Help:      "Recurring trigger entries currently registered",
})

// AgentStatusWrites counts engine-driven agent status writes that passed
// their guard, labelled by the status written.
var AgentStatusWrites = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vakt",
	Subsystem: "hours",
	Name:      "agent_status_writes_total",
	Help:      "Guarded agent status writes that took effect",
}, []string{"status"})

// ScheduleSaves counts schedule edit outcomes by validation code
// ("ok" for accepted saves).
var ScheduleSaves = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vakt",
	Subsystem: "hours",
	Name:      "schedule_saves_total",
	Help:      "Schedule save attempts by outcome code",
}, []string{"code"})

// OpenSchedules tracks the size of the currently-open projection.
var OpenSchedules = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "vakt",
	Subsystem: "hours",
	Name:      "open_schedules",
	Help:      "Schedules currently inside an open window",
})

// DatabaseQueryDuration observes GORM operation latency by operation and table.
var DatabaseQueryDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "vakt",
	Subsystem: "db",
	Name:      "query_duration_seconds",
	Help:      "Database operation latency",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation", "table"})

// DatabaseErrorsTotal counts failed GORM operations.
var DatabaseErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vakt",
	Subsystem: "db",
	Name:      "errors_total",
	Help:      "Database operation errors",
}, []string{"operation"})

// LeaderElectionStatus is 1 while this instance holds the trigger
// leadership lease.
var LeaderElectionStatus = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "vakt",
	Subsystem: "leadership",
	Name:      "is_leader",
	Help:      "Whether this instance currently leads trigger firing",
}, []string{"instance_id"})

// LeaderElectionChanges counts leadership transitions.
var LeaderElectionChanges = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vakt",
	Subsystem: "leadership",
	Name:      "changes_total",
	Help:      "Leadership acquisitions and losses",
}, []string{"instance_id", "change"})

// DatabaseConnectionsActive tracks the open connection count.
var DatabaseConnectionsActive = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "vakt",
	Subsystem: "db",
	Name:      "connections_active",
	Help:      "Open database connections",
})
