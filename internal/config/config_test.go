/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("VAKT_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("VAKT_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("unexpected default backend: %q", cfg.DBBackend)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("VAKT_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a DSN")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("VAKT_DB_DSN", "file::memory:")
	t.Setenv("VAKT_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail for an unknown backend")
	}
}

func TestLoadParsesServerOffsetOverride(t *testing.T) {
	t.Setenv("VAKT_DB_DSN", "file::memory:")
	t.Setenv("VAKT_DB_BACKEND", "sqlite")
	t.Setenv("VAKT_SERVER_UTC_OFFSET_HOURS", "-5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.ServerUTCOffsetOverride || cfg.ServerUTCOffsetHours != -5 {
		t.Fatalf("expected offset override -5, got override=%v offset=%d",
			cfg.ServerUTCOffsetOverride, cfg.ServerUTCOffsetHours)
	}

	t.Setenv("VAKT_SERVER_UTC_OFFSET_HOURS", "99")
	if _, err := Load(); err == nil {
		t.Fatal("expected out-of-range offset to be rejected")
	}
}
