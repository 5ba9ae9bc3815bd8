// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package retry implements the fixed retry ladder of spec.md §4.3: a pure
// function from (attempt index, anchor clock) to the next scheduled
// instant. It holds no state and talks to nothing — every call is
// idempotent and side-effect free, which is what makes it independently
// testable from the scheduler and status-ingress components that drive it.
package retry

import (
	"fmt"
	"time"

	"github.com/rapidaai/outbound-dialer/internal/clock"
)

// Kind classifies how a scheduled instant was derived.
type Kind string

const (
	KindImmediate            Kind = "immediate"
	KindDelay                Kind = "delay"
	KindNextOccurrenceOfHour Kind = "next_occurrence_of_hour"
)

// DefaultMaxAttempts is the default ladder length (spec.md §3.1, §6).
const DefaultMaxAttempts = 10

// ladderStep describes one row of the fixed table in spec.md §4.3.
type ladderStep struct {
	kind Kind
	// hour is only meaningful when kind == KindNextOccurrenceOfHour.
	hour int
	// delaySeconds is only meaningful when kind == KindDelay.
	delaySeconds int
}

// ladder is indexed by retry-index i in {0,...,8}. i counts retries past
// the initial attempt (the retry being scheduled), matching §4.3's table.
var ladder = []ladderStep{
	{kind: KindImmediate},
	{kind: KindDelay, delaySeconds: 3600},
	{kind: KindImmediate},
	{kind: KindNextOccurrenceOfHour, hour: 9},
	{kind: KindImmediate},
	{kind: KindNextOccurrenceOfHour, hour: 14},
	{kind: KindImmediate},
	{kind: KindNextOccurrenceOfHour, hour: 19},
	{kind: KindImmediate},
}

// Result is the outcome of Next: the kind of scheduling applied and the
// resulting instant, in UTC.
type Result struct {
	Kind        Kind
	ScheduledAt time.Time
}

// Policy is a pure retry-ladder evaluator anchored to a fixed civil time
// zone (used for next-occurrence-of-hour steps).
type Policy struct {
	CivilZone string
}

// NewPolicy builds a Policy anchored to the given IANA zone name (e.g.
// "Europe/Rome", the reference civil zone from spec.md §4.3).
func NewPolicy(civilZone string) Policy {
	return Policy{CivilZone: civilZone}
}

// Next computes the next scheduled instant for retry-index i anchored at
// now. i must be in [0, len(ladder)-1]; the caller is responsible for the
// terminal check against MAX_ATTEMPTS (spec.md §4.3's terminal rule, §8
// boundary: attempt-index == MAX_ATTEMPTS-1 produces no new queue entry —
// that decision belongs to the status ingress, not to this pure function).
//
// Next is pure: identical (i, now) always produce an identical Result, and
// for a fixed i the ScheduledAt is monotone non-decreasing in now for the
// "delay" and "next-occurrence-of-hour" kinds (the "immediate" kind simply
// echoes now).
func (p Policy) Next(i int, now time.Time) (Result, error) {
	if i < 0 || i >= len(ladder) {
		return Result{}, fmt.Errorf("retry index %d out of range [0,%d)", i, len(ladder))
	}
	now = now.UTC()
	step := ladder[i]

	switch step.kind {
	case KindImmediate:
		return Result{Kind: KindImmediate, ScheduledAt: now}, nil
	case KindDelay:
		return Result{Kind: KindDelay, ScheduledAt: now.Add(time.Duration(step.delaySeconds) * time.Second)}, nil
	case KindNextOccurrenceOfHour:
		at, err := clock.NextOccurrenceOfHour(p.CivilZone, step.hour, now)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindNextOccurrenceOfHour, ScheduledAt: at}, nil
	default:
		return Result{}, fmt.Errorf("unhandled ladder kind %q", step.kind)
	}
}

// ForceImmediate bypasses the ladder entirely — the caller-available
// override for re-attempts after a transient infrastructure error
// (spec.md §4.3).
func ForceImmediate(now time.Time) Result {
	return Result{Kind: KindImmediate, ScheduledAt: now.UTC()}
}

// IsTerminal reports whether attemptIndex has exhausted the ladder: no
// further retry may be scheduled (spec.md §4.3 terminal rule).
func IsTerminal(attemptIndex, maxAttempts int) bool {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return attemptIndex >= maxAttempts-1
}
