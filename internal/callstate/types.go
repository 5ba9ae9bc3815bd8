// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package callstate tracks the live record for each placed call, keyed by
// the carrier's own call identifier (CallSid / UUID). It is the record the
// status-callback ingress reads and patches as the carrier reports progress
// (spec.md §3.2, §4.2).
package callstate

import (
	"time"

	"gorm.io/gorm"
)

// Status values for CallState.Status (spec.md §3.2, §4.2 classification
// table).
const (
	StatusInitiated = "initiated"
	StatusRinging   = "ringing"
	StatusAnswered  = "answered"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Answered-by classification (spec.md §4.2).
const (
	AnsweredByHuman            = "human"
	AnsweredByMachine          = "machine"
	AnsweredByUnknown          = "unknown"
)

// CallState is the per-call live record of spec.md §3.2.
type CallState struct {
	CarrierCallID string `gorm:"column:carrier_call_id;primaryKey;type:varchar(128)"`

	QueueEntryID uint64 `gorm:"column:queue_entry_id"`
	ContactID    string `gorm:"column:contact_id;type:varchar(128);not null;index"`
	Phone        string `gorm:"column:phone;type:varchar(32);not null"`
	DisplayName  string `gorm:"column:display_name;type:varchar(256)"`
	GivenName    string `gorm:"column:given_name;type:varchar(128)"`
	Email        string `gorm:"column:email;type:varchar(256)"`
	FullAddress  string `gorm:"column:full_address;type:text"`

	AttemptIndex int    `gorm:"column:attempt_index;not null;default:0"`
	Status       string `gorm:"column:status;type:varchar(32);not null;default:initiated;index"`
	AnsweredBy   string `gorm:"column:answered_by;type:varchar(16)"`

	ConversationID string `gorm:"column:conversation_id;type:varchar(128)"`
	SignedURL      string `gorm:"column:signed_url;type:text"`

	// RecoveryContextJSON carries queueing.RecoveryContext through to the
	// bridge's TwiML/media-stream handlers, which no longer have the queue
	// entry to read it from (the entry is deleted on successful initiation).
	RecoveryContextJSON string `gorm:"column:recovery_context_json;type:text"`

	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	FirstAttemptAt *time.Time `gorm:"column:first_attempt_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;not null"`

	// RetryScheduled latches once a retry has been enqueued for this call,
	// so a duplicate or out-of-order carrier status callback can never
	// enqueue a second retry for the same attempt (spec.md §4.4 race note).
	RetryScheduled bool `gorm:"column:retry_scheduled;not null;default:false"`
}

func (CallState) TableName() string { return "call_states" }

func (c *CallState) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = StatusInitiated
	}
	return nil
}

func (c *CallState) BeforeUpdate(tx *gorm.DB) error {
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the call has reached a status the ingress will
// never transition out of (spec.md §4.2).
func (c *CallState) IsTerminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}
