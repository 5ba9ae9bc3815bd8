// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Next_Purity(t *testing.T) {
	p := NewPolicy("Europe/Rome")
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)

	a, err := p.Next(1, now)
	require.NoError(t, err)
	b, err := p.Next(1, now)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPolicy_Next_ImmediateEchoesNow(t *testing.T) {
	p := NewPolicy("Europe/Rome")
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)

	r, err := p.Next(0, now)
	require.NoError(t, err)
	assert.Equal(t, KindImmediate, r.Kind)
	assert.Equal(t, now, r.ScheduledAt)
}

func TestPolicy_Next_DelayStepAddsOneHour(t *testing.T) {
	p := NewPolicy("Europe/Rome")
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)

	r, err := p.Next(1, now)
	require.NoError(t, err)
	assert.Equal(t, KindDelay, r.Kind)
	assert.Equal(t, now.Add(time.Hour), r.ScheduledAt)
}

func TestPolicy_Next_NextOccurrenceOfHourMonotoneInNow(t *testing.T) {
	p := NewPolicy("Europe/Rome")
	early := time.Date(2026, 3, 5, 6, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	r1, err := p.Next(3, early)
	require.NoError(t, err)
	r2, err := p.Next(3, late)
	require.NoError(t, err)

	assert.True(t, !r2.ScheduledAt.Before(r1.ScheduledAt))
}

func TestPolicy_Next_OutOfRangeIndex(t *testing.T) {
	p := NewPolicy("Europe/Rome")
	_, err := p.Next(-1, time.Now())
	assert.Error(t, err)
	_, err = p.Next(9, time.Now())
	assert.Error(t, err)
}

func TestForceImmediate(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	r := ForceImmediate(now)
	assert.Equal(t, KindImmediate, r.Kind)
	assert.Equal(t, now, r.ScheduledAt)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(0, 10))
	assert.False(t, IsTerminal(8, 10))
	assert.True(t, IsTerminal(9, 10))
	assert.True(t, IsTerminal(12, 10))
	// zero/negative maxAttempts falls back to DefaultMaxAttempts.
	assert.True(t, IsTerminal(DefaultMaxAttempts-1, 0))
}
