/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hours

import (
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/vakt/internal/models"
)

// refWinter is a Wednesday; the next Monday from it is 2026-01-12,
// when Madrid is on CET (UTC+1).
var refWinter = time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)

// refSummer's next Monday is 2026-07-06, when Madrid is on CEST (UTC+2).
var refSummer = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func window(day string, open bool, start, finish string) models.ScheduleWindow {
	return models.ScheduleWindow{
		Day:    day,
		Open:   open,
		Start:  models.WindowEdge{Local: start},
		Finish: models.WindowEdge{Local: finish},
	}
}

func TestNormalizeMadridWinter(t *testing.T) {
	w, err := NormalizeAt(window("Monday", true, "09:00", "17:00"), "Europe/Madrid", 0, refWinter)
	if err != nil {
		t.Fatalf("NormalizeAt: %v", err)
	}

	if w.Start.Local != "09:00" || w.Finish.Local != "17:00" {
		t.Fatalf("authored local clocks changed: %+v", w)
	}
	if w.Start.UTCDay != "Monday" || w.Start.UTCTime != "08:00" {
		t.Fatalf("start UTC = %s %s, want Monday 08:00", w.Start.UTCDay, w.Start.UTCTime)
	}
	if w.Finish.UTCDay != "Monday" || w.Finish.UTCTime != "16:00" {
		t.Fatalf("finish UTC = %s %s, want Monday 16:00", w.Finish.UTCDay, w.Finish.UTCTime)
	}
	// Offset zero: trigger representation equals UTC.
	if w.Start.TriggerDay != "Monday" || w.Start.TriggerTime != "08:00" {
		t.Fatalf("start trigger = %s %s, want Monday 08:00", w.Start.TriggerDay, w.Start.TriggerTime)
	}
}

func TestNormalizeMadridSummerDiffersByDST(t *testing.T) {
	w, err := NormalizeAt(window("Monday", true, "09:00", "17:00"), "Europe/Madrid", 0, refSummer)
	if err != nil {
		t.Fatalf("NormalizeAt: %v", err)
	}
	if w.Start.UTCTime != "07:00" || w.Finish.UTCTime != "15:00" {
		t.Fatalf("summer UTC clocks = %s/%s, want 07:00/15:00", w.Start.UTCTime, w.Finish.UTCTime)
	}
}

func TestNormalizeServerOffsetShiftsTrigger(t *testing.T) {
	w, err := NormalizeAt(window("Monday", true, "09:00", "17:00"), "Europe/Madrid", 2, refWinter)
	if err != nil {
		t.Fatalf("NormalizeAt: %v", err)
	}
	if w.Start.UTCTime != "08:00" {
		t.Fatalf("UTC time = %s, want 08:00 regardless of server offset", w.Start.UTCTime)
	}
	if w.Start.TriggerDay != "Monday" || w.Start.TriggerTime != "10:00" {
		t.Fatalf("start trigger = %s %s, want Monday 10:00", w.Start.TriggerDay, w.Start.TriggerTime)
	}
	if w.Finish.TriggerTime != "18:00" {
		t.Fatalf("finish trigger = %s, want 18:00", w.Finish.TriggerTime)
	}
}

func TestNormalizeEarlyWindowCrossesToPreviousUTCDay(t *testing.T) {
	w, err := NormalizeAt(window("Monday", true, "02:00", "06:00"), "Asia/Tokyo", 0, refWinter)
	if err != nil {
		t.Fatalf("NormalizeAt: %v", err)
	}
	if w.Start.UTCDay != "Sunday" || w.Start.UTCTime != "17:00" {
		t.Fatalf("start UTC = %s %s, want Sunday 17:00", w.Start.UTCDay, w.Start.UTCTime)
	}
	if w.Finish.UTCDay != "Sunday" || w.Finish.UTCTime != "21:00" {
		t.Fatalf("finish UTC = %s %s, want Sunday 21:00", w.Finish.UTCDay, w.Finish.UTCTime)
	}
	// A negative server offset pushes the trigger day back further.
	w, err = NormalizeAt(window("Monday", true, "02:00", "06:00"), "Asia/Tokyo", -5, refWinter)
	if err != nil {
		t.Fatalf("NormalizeAt: %v", err)
	}
	if w.Start.TriggerDay != "Sunday" || w.Start.TriggerTime != "12:00" {
		t.Fatalf("start trigger = %s %s, want Sunday 12:00", w.Start.TriggerDay, w.Start.TriggerTime)
	}
}

func TestNormalizeEmptyTimezoneUsesServerOffset(t *testing.T) {
	w, err := NormalizeAt(window("Monday", true, "09:00", "17:00"), "", 2, refWinter)
	if err != nil {
		t.Fatalf("NormalizeAt: %v", err)
	}
	// Authored in UTC+2, so UTC is two hours earlier and the trigger
	// representation lands back on the authored clock.
	if w.Start.UTCTime != "07:00" {
		t.Fatalf("UTC time = %s, want 07:00", w.Start.UTCTime)
	}
	if w.Start.TriggerTime != "09:00" {
		t.Fatalf("trigger time = %s, want 09:00", w.Start.TriggerTime)
	}
}

func TestNormalizeRejectsReversedWindow(t *testing.T) {
	cases := []struct {
		name          string
		start, finish string
	}{
		{"reversed", "17:00", "09:00"},
		{"equal", "09:00", "09:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeAt(window("Monday", true, tc.start, tc.finish), "Europe/Madrid", 0, refWinter)
			var v *ValidationError
			if !errors.As(err, &v) || v.Code != CodeInvalidWindowOrder {
				t.Fatalf("err = %v, want %s", err, CodeInvalidWindowOrder)
			}
			if v.Day != "Monday" {
				t.Fatalf("rejection names day %q, want Monday", v.Day)
			}
		})
	}
}

func TestNormalizeAcceptsEqualClocksOnClosedDay(t *testing.T) {
	if _, err := NormalizeAt(window("Sunday", false, "00:00", "00:00"), "Europe/Madrid", 0, refWinter); err != nil {
		t.Fatalf("closed day with equal clocks rejected: %v", err)
	}
}

func TestNormalizeValidationCodes(t *testing.T) {
	cases := []struct {
		name string
		w    models.ScheduleWindow
		tz   string
		code string
	}{
		{"unknown timezone", window("Monday", true, "09:00", "17:00"), "Mars/Olympus", CodeUnknownTimezone},
		{"unknown weekday", window("Someday", true, "09:00", "17:00"), "Europe/Madrid", CodeUnknownWeekday},
		{"bad clock", window("Monday", true, "25:00", "17:00"), "Europe/Madrid", CodeInvalidClock},
		{"not a clock", window("Monday", true, "morning", "17:00"), "Europe/Madrid", CodeInvalidClock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeAt(tc.w, tc.tz, 0, refWinter)
			var v *ValidationError
			if !errors.As(err, &v) || v.Code != tc.code {
				t.Fatalf("err = %v, want code %s", err, tc.code)
			}
		})
	}
}

func TestParseWeekdayCaseInsensitive(t *testing.T) {
	d, err := ParseWeekday("monday")
	if err != nil || d != time.Monday {
		t.Fatalf("ParseWeekday(monday) = %v, %v", d, err)
	}
	if _, err := ParseWeekday("Mon"); err == nil {
		t.Fatal("abbreviated weekday should be rejected")
	}
}

func TestOpenAt(t *testing.T) {
	s := &models.Schedule{
		Timezone: "Europe/Madrid",
		Windows: []models.ScheduleWindow{
			window("Monday", true, "09:00", "17:00"),
			window("Tuesday", false, "09:00", "17:00"),
		},
	}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"inside", time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC), true},     // 11:00 Madrid
		{"at start", time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC), true},    // 09:00 Madrid
		{"at finish", time.Date(2026, 1, 12, 16, 0, 0, 0, time.UTC), false}, // 17:00 Madrid, exclusive
		{"before", time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC), false},
		{"closed day", time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := OpenAt(s, 0, tc.at)
			if err != nil {
				t.Fatalf("OpenAt: %v", err)
			}
			if got != tc.want {
				t.Fatalf("OpenAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOpenAtEmptyTimezoneFallsBackToServerOffset(t *testing.T) {
	s := &models.Schedule{
		Windows: []models.ScheduleWindow{window("Monday", true, "09:00", "17:00")},
	}
	// 08:00 UTC Monday is 10:00 in UTC+2, inside the window.
	got, err := OpenAt(s, 2, time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	if !got {
		t.Fatal("expected open in server-offset zone")
	}
}
