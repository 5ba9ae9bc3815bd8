// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package queueing owns the persistent call queue: durable ingress,
// time-ordered dispatch, and the atomic pending->in-flight transition that
// makes call initiation at-most-once per queue entry (spec.md §3.1, §4.4).
package queueing

import (
	"time"

	"gorm.io/gorm"
)

// Status values for QueueEntry.Status (spec.md §3.1).
const (
	StatusPending  = "pending"
	StatusInFlight = "in-flight"
	StatusFailed   = "failed"
)

// RecoveryContext carries the optional abrupt-ending-retry payload through
// to the next initiation (spec.md §9 design note, SPEC_FULL.md §11.4). It is
// propagated opaquely — the queue and scheduler never interpret it.
type RecoveryContext struct {
	PastCallSummary       string `json:"pastCallSummary,omitempty"`
	OriginalConversationID string `json:"originalConversationId,omitempty"`
}

// QueueEntry is the pending-work row of spec.md §3.1.
type QueueEntry struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`

	ContactID   string `gorm:"column:contact_id;type:varchar(128);not null;index"`
	Phone       string `gorm:"column:phone;type:varchar(32);not null"`
	GivenName   string `gorm:"column:given_name;type:varchar(128)"`
	FullName    string `gorm:"column:full_name;type:varchar(256)"`
	Email       string `gorm:"column:email;type:varchar(256)"`
	FullAddress string `gorm:"column:full_address;type:text"`

	AttemptIndex int    `gorm:"column:attempt_index;not null;default:0"`
	Status       string `gorm:"column:status;type:varchar(16);not null;default:pending;index"`

	ScheduledAt         time.Time `gorm:"column:scheduled_at;not null;index"`
	CreatedAt           time.Time `gorm:"column:created_at;not null"`
	FirstAttemptAt      time.Time `gorm:"column:first_attempt_at;not null"`
	LastAttemptAt       *time.Time `gorm:"column:last_attempt_at"`
	LastError           string    `gorm:"column:last_error;type:text"`

	CallOptionsBlob   string `gorm:"column:call_options_blob;type:text"`
	InitialSignedURL  string `gorm:"column:initial_signed_url;type:text"`

	RecoveryContextJSON string `gorm:"column:recovery_context_json;type:text"`
}

// TableName pins the gorm table name.
func (QueueEntry) TableName() string { return "queue_entries" }

// BeforeCreate stamps CreatedAt/FirstAttemptAt and defaults ScheduledAt so
// callers building a QueueEntry literal don't need to remember the
// first-attempt-timestamp invariant (spec.md §3.1: never rewritten after
// attempt 0).
func (q *QueueEntry) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.ScheduledAt.IsZero() {
		q.ScheduledAt = now
	}
	if q.AttemptIndex == 0 && q.FirstAttemptAt.IsZero() {
		q.FirstAttemptAt = q.ScheduledAt
	}
	if q.Status == "" {
		q.Status = StatusPending
	}
	return nil
}
