// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package queueing

import (
	"context"
	"time"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

// CarrierCounter reports how many calls the carrier currently has active for
// this account — the scheduler's concurrency gate (spec.md §4.4 step 1-2).
type CarrierCounter interface {
	CountActiveCalls(ctx context.Context) (int, error)
}

// Initiator places a single outbound call for a claimed queue entry. Returning
// an error tells the scheduler to mark the entry failed, not to retry it
// here — retries after a carrier-reported outcome are scheduled by the
// status-ingress component, not by the scheduler (spec.md §4.3-4.4).
type Initiator interface {
	Initiate(ctx context.Context, entry *QueueEntry) error
}

// Scheduler is the periodic worker of spec.md §4.4: every tick it checks
// carrier capacity, pulls the oldest eligible entries up to the remaining
// slots, and claims+dispatches each one.
type Scheduler struct {
	store          Store
	carrier        CarrierCounter
	initiator      Initiator
	logger         commons.Logger
	interval       time.Duration
	maxActiveCalls int
}

// NewScheduler builds a Scheduler. maxActiveCalls is the MAX_ACTIVE_CALLS
// config value; interval is QUEUE_INTERVAL_MS.
func NewScheduler(store Store, carrier CarrierCounter, initiator Initiator, logger commons.Logger, interval time.Duration, maxActiveCalls int) *Scheduler {
	return &Scheduler{
		store:          store,
		carrier:        carrier,
		initiator:      initiator,
		logger:         logger,
		interval:       interval,
		maxActiveCalls: maxActiveCalls,
	}
}

// Run blocks, ticking every s.interval until ctx is cancelled. Callers should
// invoke Store.ReclaimStaleInFlight once before Run, at process startup
// (SPEC_FULL.md §9.6) — Run itself never reclaims.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	active, err := s.carrier.CountActiveCalls(ctx)
	if err != nil {
		// Fail closed: an unreadable carrier count must never be treated
		// as zero active calls (spec.md §4.4 step 2 failure mode).
		s.logger.Errorf("scheduler: carrier active-call count unavailable, skipping tick: %v", err)
		return
	}

	slots := s.maxActiveCalls - active
	if slots <= 0 {
		return
	}

	entries, err := s.store.SelectEligible(ctx, time.Now(), slots)
	if err != nil {
		s.logger.Errorf("scheduler: select eligible queue entries: %v", err)
		return
	}

	for _, entry := range entries {
		s.dispatch(ctx, entry)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, entry *QueueEntry) {
	claimed, err := s.store.Claim(ctx, entry.ID, time.Now())
	if err != nil {
		s.logger.Errorf("scheduler: claim queue entry %d: %v", entry.ID, err)
		return
	}
	if !claimed {
		// Lost the race to another scheduler run; nothing to do.
		return
	}

	if err := s.initiator.Initiate(ctx, entry); err != nil {
		s.logger.Warnw("scheduler: initiation failed", "queueEntryId", entry.ID, "contactId", entry.ContactID, "error", err.Error())
		if markErr := s.store.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			s.logger.Errorf("scheduler: mark queue entry %d failed: %v", entry.ID, markErr)
		}
		return
	}

	if err := s.store.Delete(ctx, entry.ID); err != nil {
		s.logger.Errorf("scheduler: delete initiated queue entry %d: %v", entry.ID, err)
	}
}
