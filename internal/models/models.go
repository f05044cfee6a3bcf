/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models defines the persisted entities of the hours engine.
package models

import "time"

// AgentStatus is the live availability of a support agent.
type AgentStatus string

const (
	StatusAvailable    AgentStatus = "available"
	StatusNotAvailable AgentStatus = "not_available"
)

// ScheduleKind selects the editor/behavior variant for a schedule.
type ScheduleKind string

const (
	// KindShared is a company-wide schedule. Only shared schedules may be
	// the platform default assigned to newly created agents.
	KindShared ScheduleKind = "shared"
	// KindTeam is a schedule bound to one or more teams (departments).
	KindTeam ScheduleKind = "team"
)

// WindowEdge is one boundary of a weekly window in its three parallel
// representations: the clock string as authored (meaningless without the
// schedule's timezone), the UTC day/time of that instant, and the
// server-local day/time the trigger scheduler matches on.
type WindowEdge struct {
	Local       string `gorm:"column:local;type:varchar(5)" json:"local"`
	UTCDay      string `gorm:"column:utc_day;type:varchar(16)" json:"utc_day"`
	UTCTime     string `gorm:"column:utc_time;type:varchar(5)" json:"utc_time"`
	TriggerDay  string `gorm:"column:trigger_day;type:varchar(16)" json:"trigger_day"`
	TriggerTime string `gorm:"column:trigger_time;type:varchar(5)" json:"trigger_time"`
}

// ScheduleWindow is one weekday's configuration within a schedule.
type ScheduleWindow struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID string `gorm:"type:uuid;index:idx_schedule_windows_schedule;not null" json:"schedule_id"`

	// Day is the weekday name as authored, e.g. "Monday".
	Day  string `gorm:"type:varchar(16);not null" json:"day"`
	Open bool   `gorm:"not null;default:false" json:"open"`

	Start  WindowEdge `gorm:"embedded;embeddedPrefix:start_" json:"start"`
	Finish WindowEdge `gorm:"embedded;embeddedPrefix:finish_" json:"finish"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ScheduleWindow) TableName() string {
	return "schedule_windows"
}

// Schedule is a named weekly business-hours configuration.
type Schedule struct {
	ID     string       `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string       `gorm:"type:varchar(255);not null" json:"name"`
	Kind   ScheduleKind `gorm:"type:varchar(16);not null;default:'shared'" json:"kind"`
	Active bool         `gorm:"not null;default:false" json:"active"`

	// Timezone is the IANA zone the windows were authored in. Empty means
	// the server's own UTC offset.
	Timezone string `gorm:"type:varchar(64)" json:"timezone"`

	// IsDefault marks the single fallback schedule assigned to newly
	// created agents. Enforced at assignment time, not at save time.
	IsDefault bool `gorm:"not null;default:false;index" json:"is_default"`

	Windows []ScheduleWindow `gorm:"foreignKey:ScheduleID" json:"windows,omitempty"`
	Teams   []Team           `gorm:"foreignKey:ScheduleID" json:"teams,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Schedule) TableName() string {
	return "schedules"
}

// Window returns the window for the given authored weekday name, if any.
func (s *Schedule) Window(day string) *ScheduleWindow {
	for i := range s.Windows {
		if s.Windows[i].Day == day {
			return &s.Windows[i]
		}
	}
	return nil
}

// Team is an organizational group (department) of agents. A team may be
// associated with at most one schedule.
type Team struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	ScheduleID *string `gorm:"type:uuid;index" json:"schedule_id,omitempty"`

	Agents []Agent `gorm:"many2many:team_agents" json:"agents,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Team) TableName() string {
	return "teams"
}

// Agent is a support agent. The hours engine owns three facets of it:
// the assigned-schedule set, the live status, and the marker saying the
// status was last written by the engine rather than the human agent.
type Agent struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Name  string `gorm:"type:varchar(255)" json:"name"`

	Status AgentStatus `gorm:"type:varchar(16);not null;default:'not_available'" json:"status"`

	// StatusSetByEngine distinguishes an engine-written status from a
	// manual one. A manual not_available is never overridden by OnOpen.
	StatusSetByEngine bool `gorm:"not null;default:false" json:"status_set_by_engine"`

	Schedules []Schedule `gorm:"many2many:agent_schedules" json:"schedules,omitempty"`
	Teams     []Team     `gorm:"many2many:team_agents" json:"teams,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Agent) TableName() string {
	return "agents"
}
