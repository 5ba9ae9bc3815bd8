// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package clock implements the civil-time-zone arithmetic the retry ladder
// and operating-hours checks depend on (spec.md §4.3, §9 component I).
package clock

import (
	"fmt"
	"time"
)

// NextOccurrenceOfHour returns the smallest instant strictly after now whose
// wall-clock hour in the named zone equals hour and whose minute is 0. If now is
// already at or past hour:00 today in zone, it rolls to tomorrow — this is
// strictly-after semantics: t == H:00:00 exactly returns t+24h (spec.md §8
// boundary behavior).
func NextOccurrenceOfHour(zoneName string, hour int, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown civil time zone %q: %w", zoneName, err)
	}

	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)

	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate.UTC(), nil
}

// InOperatingHours reports whether t falls within [startHour, endHour) civil
// time in the named zone. Neither the retry ladder nor the scheduler calls
// it, so it never suppresses already-eligible scheduler dispatch.
func InOperatingHours(zoneName string, startHour, endHour int, t time.Time) (bool, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return false, fmt.Errorf("unknown civil time zone %q: %w", zoneName, err)
	}
	h := t.In(loc).Hour()
	return h >= startHour && h < endHour, nil
}

// NextBusinessDay returns 09:00 civil time on the next Monday-through-Friday
// date strictly after t's civil date in the named zone, skipping weekends.
func NextBusinessDay(zoneName string, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown civil time zone %q: %w", zoneName, err)
	}

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 9, 0, 0, 0, loc).AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day.UTC(), nil
}
