/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"errors"
	"fmt"
)

// Stable validation codes surfaced to the API layer for translation.
// These are machine-readable and must not change once released.
const (
	CodeInvalidWindowOrder = "invalid_window_order"
	CodeUnknownTimezone    = "unknown_timezone"
	CodeUnknownWeekday     = "unknown_weekday"
	CodeInvalidClock       = "invalid_clock"
	CodeDuplicateWindowDay = "duplicate_window_day"
)

var (
	// ErrNotFound is returned for unknown schedule or agent ids. Callers
	// should not retry.
	ErrNotFound = errors.New("not found")

	// ErrRepositoryUnavailable wraps persistence failures. Operations are
	// idempotent re-derivations, so callers may retry wholesale.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)

// ValidationError is a schedule edit rejection with a stable code. It is
// raised synchronously at save time; nothing invalid is ever persisted.
type ValidationError struct {
	Code string
	Day  string
}

func (e *ValidationError) Error() string {
	if e.Day != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Day)
	}
	return e.Code
}

// IsValidation reports whether err is a schedule validation rejection.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalidWindowOrder(day string) error {
	return &ValidationError{Code: CodeInvalidWindowOrder, Day: day}
}

func repoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || IsValidation(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
}
