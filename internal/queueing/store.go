// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package queueing

import (
	"context"
	"fmt"
	"time"

	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/connectors"
)

// Store is the persistence surface the scheduler and ingress depend on.
// Every multi-step transition described in spec.md §4.4 goes through a
// single SQL statement per row — there is no application-level locking.
type Store interface {
	// Insert creates a new queue entry (ingress HTTP or a retry schedule).
	Insert(ctx context.Context, e *QueueEntry) error

	// SelectEligible returns up to limit pending entries whose
	// scheduled_at <= now, ordered by scheduled_at then id (FIFO,
	// spec.md §4.4 ordering guarantee).
	SelectEligible(ctx context.Context, now time.Time, limit int) ([]*QueueEntry, error)

	// Claim atomically transitions one row from pending to in-flight,
	// stamping last_attempt_at. Returns (true, nil) if this call won the
	// race; (false, nil) if another worker/run already claimed it.
	Claim(ctx context.Context, id uint64, now time.Time) (bool, error)

	// Delete removes a queue entry (successful initiation).
	Delete(ctx context.Context, id uint64) error

	// MarkFailed transitions an entry to "failed" with the given message.
	// The retry ladder is not consulted here — initiation failures are a
	// distinct error class from carrier-reported outcomes (spec.md §4.5).
	MarkFailed(ctx context.Context, id uint64, message string) error

	// ReclaimStaleInFlight resets in-flight rows whose last_attempt_at is
	// older than olderThan back to pending (SPEC_FULL.md §9.6 startup
	// recovery sweep). Returns the count reclaimed.
	ReclaimStaleInFlight(ctx context.Context, olderThan time.Duration) (int64, error)
}

type store struct {
	db     connectors.SqliteConnector
	logger commons.Logger
}

// NewStore builds a Store over the shared embedded connection pool.
func NewStore(db connectors.SqliteConnector, logger commons.Logger) Store {
	return &store{db: db, logger: logger}
}

func (s *store) Insert(ctx context.Context, e *QueueEntry) error {
	if err := s.db.DB(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert queue entry for contact %s: %w", e.ContactID, err)
	}
	s.logger.Infof("queue entry %d inserted: contact=%s attempt=%d scheduledAt=%s",
		e.ID, e.ContactID, e.AttemptIndex, e.ScheduledAt)
	return nil
}

func (s *store) SelectEligible(ctx context.Context, now time.Time, limit int) ([]*QueueEntry, error) {
	var entries []*QueueEntry
	err := s.db.DB(ctx).
		Where("status = ? AND scheduled_at <= ?", StatusPending, now.UTC()).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("select eligible queue entries: %w", err)
	}
	return entries, nil
}

func (s *store) Claim(ctx context.Context, id uint64, now time.Time) (bool, error) {
	result := s.db.DB(ctx).Model(&QueueEntry{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":          StatusInFlight,
			"last_attempt_at": now.UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("claim queue entry %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *store) Delete(ctx context.Context, id uint64) error {
	if err := s.db.DB(ctx).Where("id = ?", id).Delete(&QueueEntry{}).Error; err != nil {
		return fmt.Errorf("delete queue entry %d: %w", id, err)
	}
	return nil
}

func (s *store) MarkFailed(ctx context.Context, id uint64, message string) error {
	result := s.db.DB(ctx).Model(&QueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     StatusFailed,
			"last_error": message,
		})
	if result.Error != nil {
		return fmt.Errorf("mark queue entry %d failed: %w", id, result.Error)
	}
	return nil
}

func (s *store) ReclaimStaleInFlight(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result := s.db.DB(ctx).Model(&QueueEntry{}).
		Where("status = ? AND last_attempt_at <= ?", StatusInFlight, cutoff).
		Updates(map[string]interface{}{
			"status":     StatusPending,
			"last_error": "stale in-flight recovered",
		})
	if result.Error != nil {
		return 0, fmt.Errorf("reclaim stale in-flight entries: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Warnw("reclaimed stale in-flight queue entries", "count", result.RowsAffected, "olderThan", olderThan)
	}
	return result.RowsAffected, nil
}
