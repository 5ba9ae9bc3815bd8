// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package callstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/connectors"
)

// lookupRetryDelay and lookupRetryAttempts bound the repeated lookups Get
// performs when a carrier status callback races the initiator's own
// write of the CallState row (spec.md §4.2 design note: the callback can
// reach the server before CreateCall's response does).
const (
	lookupRetryDelay    = 250 * time.Millisecond
	lookupRetryAttempts = 8 // ~2s total
)

// ErrNotFound is returned by Get when no row exists after exhausting the
// bounded retry window.
var ErrNotFound = errors.New("callstate: not found")

// Registry is the read/write surface for CallState rows.
type Registry interface {
	// Put inserts a new CallState, created at call-initiation time.
	Put(ctx context.Context, c *CallState) error

	// Get resolves a CallState by carrier call id, retrying briefly if the
	// row isn't there yet (spec.md §4.2 race with the initiator's write).
	Get(ctx context.Context, carrierCallID string) (*CallState, error)

	// Update applies a partial patch by column name.
	Update(ctx context.Context, carrierCallID string, patch map[string]interface{}) error

	// LatchRetryScheduled atomically sets retry_scheduled=true, returning
	// whether this call won the latch (false means a retry was already
	// scheduled for this call — the caller must not schedule another).
	LatchRetryScheduled(ctx context.Context, carrierCallID string) (bool, error)
}

type registry struct {
	db     connectors.SqliteConnector
	logger commons.Logger
}

// NewRegistry builds a Registry over the shared embedded connection pool.
func NewRegistry(db connectors.SqliteConnector, logger commons.Logger) Registry {
	return &registry{db: db, logger: logger}
}

func (r *registry) Put(ctx context.Context, c *CallState) error {
	if err := r.db.DB(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert call state %s: %w", c.CarrierCallID, err)
	}
	return nil
}

func (r *registry) Get(ctx context.Context, carrierCallID string) (*CallState, error) {
	var last error
	for attempt := 0; attempt < lookupRetryAttempts; attempt++ {
		var c CallState
		err := r.db.DB(ctx).Where("carrier_call_id = ?", carrierCallID).First(&c).Error
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lookup call state %s: %w", carrierCallID, err)
		}
		last = err
		if attempt < lookupRetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(lookupRetryDelay):
			}
		}
	}
	r.logger.Warnw("call state lookup exhausted retry window", "carrierCallId", carrierCallID, "lastError", last)
	return nil, ErrNotFound
}

func (r *registry) Update(ctx context.Context, carrierCallID string, patch map[string]interface{}) error {
	result := r.db.DB(ctx).Model(&CallState{}).
		Where("carrier_call_id = ?", carrierCallID).
		Updates(patch)
	if result.Error != nil {
		return fmt.Errorf("update call state %s: %w", carrierCallID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update call state %s: %w", carrierCallID, ErrNotFound)
	}
	return nil
}

func (r *registry) LatchRetryScheduled(ctx context.Context, carrierCallID string) (bool, error) {
	result := r.db.DB(ctx).Model(&CallState{}).
		Where("carrier_call_id = ? AND retry_scheduled = ?", carrierCallID, false).
		Update("retry_scheduled", true)
	if result.Error != nil {
		return false, fmt.Errorf("latch retry-scheduled for %s: %w", carrierCallID, result.Error)
	}
	return result.RowsAffected == 1, nil
}
