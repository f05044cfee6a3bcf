/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold is generous: the engine's queries are guarded
// single-row updates and small window scans.
const slowQueryThreshold = 200 * time.Millisecond

// gormZerolog adapts gorm's logger interface onto the process logger so
// query failures and slow queries land in the same structured stream as
// everything else. Routine query tracing stays silent.
type gormZerolog struct {
	logger zerolog.Logger
}

func newGormLogger(logger zerolog.Logger) gormlogger.Interface {
	return &gormZerolog{
		logger: logger.With().Str("component", "db").Logger(),
	}
}

// LogMode is a no-op; verbosity is decided by the zerolog level.
func (l *gormZerolog) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *gormZerolog) Info(_ context.Context, msg string, data ...interface{}) {
	l.logger.Info().Msgf(msg, data...)
}

func (l *gormZerolog) Warn(_ context.Context, msg string, data ...interface{}) {
	l.logger.Warn().Msgf(msg, data...)
}

func (l *gormZerolog) Error(_ context.Context, msg string, data ...interface{}) {
	l.logger.Error().Msgf(msg, data...)
}

func (l *gormZerolog) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		l.logger.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	}
}
