// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrenceOfHour_BeforeTargetToday(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	now := time.Date(2026, 3, 5, 8, 30, 0, 0, loc)

	got, err := NextOccurrenceOfHour("Europe/Rome", 9, now)
	require.NoError(t, err)

	want := time.Date(2026, 3, 5, 9, 0, 0, 0, loc).UTC()
	assert.Equal(t, want, got)
}

func TestNextOccurrenceOfHour_ExactlyAtTargetRollsToTomorrow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	now := time.Date(2026, 3, 5, 9, 0, 0, 0, loc)

	got, err := NextOccurrenceOfHour("Europe/Rome", 9, now)
	require.NoError(t, err)

	want := time.Date(2026, 3, 6, 9, 0, 0, 0, loc).UTC()
	assert.Equal(t, want, got)
}

func TestNextOccurrenceOfHour_AfterTargetRollsToTomorrow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	now := time.Date(2026, 3, 5, 19, 0, 0, 0, loc)

	got, err := NextOccurrenceOfHour("Europe/Rome", 14, now)
	require.NoError(t, err)

	want := time.Date(2026, 3, 6, 14, 0, 0, 0, loc).UTC()
	assert.Equal(t, want, got)
}

func TestNextOccurrenceOfHour_UnknownZone(t *testing.T) {
	_, err := NextOccurrenceOfHour("Not/AZone", 9, time.Now())
	assert.Error(t, err)
}

func TestInOperatingHours(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	inside := time.Date(2026, 3, 5, 10, 0, 0, 0, loc)
	ok, err := InOperatingHours("Europe/Rome", 9, 19, inside)
	require.NoError(t, err)
	assert.True(t, ok)

	outside := time.Date(2026, 3, 5, 20, 0, 0, 0, loc)
	ok, err = InOperatingHours("Europe/Rome", 9, 19, outside)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNextBusinessDay_SkipsWeekend(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	friday := time.Date(2026, 3, 6, 12, 0, 0, 0, loc)

	got, err := NextBusinessDay("Europe/Rome", friday)
	require.NoError(t, err)

	want := time.Date(2026, 3, 9, 9, 0, 0, 0, loc).UTC()
	assert.Equal(t, want, got)
}
