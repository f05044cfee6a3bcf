/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	DBBackend   DatabaseBackend
	DBDSN       string
	OpsBind     string // bind address for the health/metrics endpoint

	// Server-local trigger offset. When unset the process derives the
	// whole-hour offset from time.Local at startup.
	ServerUTCOffsetHours    int
	ServerUTCOffsetOverride bool

	// How often the trigger runner re-reads registrations from the store.
	TriggerRefresh time.Duration

	// Redis: open-schedule projection plus leader election.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS event bridge between instances. Empty disables the bridge.
	NATSUrl string

	// Multi-instance configuration
	LeaderElectionEnabled bool
	InstanceID            string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:    getEnv("VAKT_ENV", "development"),
		DBBackend:      DatabaseBackend(getEnv("VAKT_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:          getEnv("VAKT_DB_DSN", ""),
		OpsBind:        getEnv("VAKT_OPS_BIND", "127.0.0.1:9000"),
		TriggerRefresh: time.Duration(getEnvInt("VAKT_TRIGGER_REFRESH_SECONDS", 60)) * time.Second,

		RedisAddr:     getEnv("VAKT_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("VAKT_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("VAKT_REDIS_DB", 0),

		NATSUrl: getEnv("VAKT_NATS_URL", ""),

		LeaderElectionEnabled: getEnvBool("VAKT_LEADER_ELECTION_ENABLED", false),
		InstanceID:            getEnv("VAKT_INSTANCE_ID", ""),

		TracingEnabled:    getEnvBool("VAKT_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("VAKT_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("VAKT_TRACING_SAMPLE_RATE", 1.0),
	}

	if raw := os.Getenv("VAKT_SERVER_UTC_OFFSET_HOURS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("VAKT_SERVER_UTC_OFFSET_HOURS must be an integer, got %q", raw)
		}
		if parsed < -12 || parsed > 14 {
			return nil, fmt.Errorf("VAKT_SERVER_UTC_OFFSET_HOURS out of range: %d", parsed)
		}
		cfg.ServerUTCOffsetHours = parsed
		cfg.ServerUTCOffsetOverride = true
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("VAKT_DB_DSN must be provided")
	}

	if cfg.TriggerRefresh < time.Second {
		return nil, fmt.Errorf("VAKT_TRIGGER_REFRESH_SECONDS must be at least 1")
	}

	if cfg.LeaderElectionEnabled && cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			return nil, fmt.Errorf("VAKT_INSTANCE_ID must be provided when leader election is enabled and hostname is unavailable")
		}
		cfg.InstanceID = host
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
