/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/friendsincode/vakt/internal/models"
)

// ClockLayout is the wire format for window clock strings.
const ClockLayout = "15:04"

// ParseWeekday resolves an authored weekday name ("Monday") to a
// time.Weekday. Matching is case-insensitive.
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, &ValidationError{Code: CodeUnknownWeekday, Day: name}
}

// ParseClock splits an "HH:MM" clock string into hour and minute.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, &ValidationError{Code: CodeInvalidClock}
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, &ValidationError{Code: CodeInvalidClock}
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, &ValidationError{Code: CodeInvalidClock}
	}
	return hour, minute, nil
}

var serverOffset struct {
	mu       sync.RWMutex
	override bool
	hours    int
}

// ServerUTCOffsetHours reports the process's current UTC offset in whole
// hours. Trigger keys are derived from this number, not from a zone name.
func ServerUTCOffsetHours() int {
	serverOffset.mu.RLock()
	defer serverOffset.mu.RUnlock()
	if serverOffset.override {
		return serverOffset.hours
	}
	_, secs := time.Now().Zone()
	return secs / 3600
}

// OverrideServerUTCOffset pins the server offset instead of deriving it
// from time.Local. Used when the process zone does not match the zone
// triggers should fire in.
func OverrideServerUTCOffset(hours int) {
	serverOffset.mu.Lock()
	serverOffset.override = true
	serverOffset.hours = hours
	serverOffset.mu.Unlock()
}

// ServerLocation returns a fixed zone at the server offset. Anything that
// matches wall-clock times against trigger keys must run in this zone,
// not time.Local, or a pinned override would shift keys and clock apart.
func ServerLocation() *time.Location {
	offset := ServerUTCOffsetHours()
	return time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600)
}

// Normalize converts an authored window (day name, open flag, local clock
// strings) into its full three-representation form. It is pure: the input
// window is not mutated and a new value is returned.
//
// serverOffsetHours is the server process's UTC offset in whole hours. The
// trigger representation is the UTC instant shifted by that offset; it is
// captured once here and is not DST-aware, so trigger keys drift across a
// DST change until the schedule is saved again.
func Normalize(w models.ScheduleWindow, timezone string, serverOffsetHours int) (models.ScheduleWindow, error) {
	return NormalizeAt(w, timezone, serverOffsetHours, time.Now())
}

// NormalizeAt is Normalize with an explicit reference instant. The window's
// civil date is the next occurrence of the authored weekday in the
// authoring zone at or after ref, so the DST state in effect around ref
// decides the conversion.
func NormalizeAt(w models.ScheduleWindow, timezone string, serverOffsetHours int, ref time.Time) (models.ScheduleWindow, error) {
	day, err := ParseWeekday(w.Day)
	if err != nil {
		return models.ScheduleWindow{}, err
	}
	loc, err := location(timezone, serverOffsetHours)
	if err != nil {
		return models.ScheduleWindow{}, err
	}
	startHour, startMin, err := ParseClock(w.Start.Local)
	if err != nil {
		return models.ScheduleWindow{}, err
	}
	finishHour, finishMin, err := ParseClock(w.Finish.Local)
	if err != nil {
		return models.ScheduleWindow{}, err
	}

	local := ref.In(loc)
	date := local.AddDate(0, 0, daysUntil(local.Weekday(), day))
	startAt := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMin, 0, 0, loc)
	finishAt := time.Date(date.Year(), date.Month(), date.Day(), finishHour, finishMin, 0, 0, loc)

	// Rejected at edit time only; evaluation never sees a reversed window.
	if w.Open && !finishAt.After(startAt) {
		return models.ScheduleWindow{}, invalidWindowOrder(w.Day)
	}

	out := w
	out.Start = edgeFor(startAt, w.Start.Local, serverOffsetHours)
	out.Finish = edgeFor(finishAt, w.Finish.Local, serverOffsetHours)
	return out, nil
}

// OpenAt reports whether t falls inside one of the schedule's open
// windows, re-deriving from the authored local values rather than the
// persisted trigger keys.
func OpenAt(s *models.Schedule, serverOffsetHours int, t time.Time) (bool, error) {
	loc, err := location(s.Timezone, serverOffsetHours)
	if err != nil {
		return false, err
	}
	local := t.In(loc)
	minuteOfDay := local.Hour()*60 + local.Minute()

	for i := range s.Windows {
		w := &s.Windows[i]
		if !w.Open {
			continue
		}
		day, err := ParseWeekday(w.Day)
		if err != nil {
			return false, err
		}
		if local.Weekday() != day {
			continue
		}
		startHour, startMin, err := ParseClock(w.Start.Local)
		if err != nil {
			return false, err
		}
		finishHour, finishMin, err := ParseClock(w.Finish.Local)
		if err != nil {
			return false, err
		}
		if minuteOfDay >= startHour*60+startMin && minuteOfDay < finishHour*60+finishMin {
			return true, nil
		}
	}
	return false, nil
}

func edgeFor(at time.Time, local string, serverOffsetHours int) models.WindowEdge {
	utc := at.UTC()
	trigger := utc.Add(time.Duration(serverOffsetHours) * time.Hour)
	return models.WindowEdge{
		Local:       local,
		UTCDay:      utc.Weekday().String(),
		UTCTime:     utc.Format(ClockLayout),
		TriggerDay:  trigger.Weekday().String(),
		TriggerTime: trigger.Format(ClockLayout),
	}
}

// location resolves the authoring timezone; an empty name falls back to a
// fixed zone built from the server's UTC offset.
func location(timezone string, serverOffsetHours int) (*time.Location, error) {
	if timezone == "" {
		return time.FixedZone(fmt.Sprintf("UTC%+d", serverOffsetHours), serverOffsetHours*3600), nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, &ValidationError{Code: CodeUnknownTimezone}
	}
	return loc, nil
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}
