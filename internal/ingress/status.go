// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package ingress implements the status-callback state machine of spec.md
// §4.6: classify a carrier status event, decide whether to schedule a retry,
// and never schedule the same retry twice.
package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/rapidaai/outbound-dialer/internal/callstate"
	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
	"github.com/rapidaai/outbound-dialer/internal/retry"
)

// machineAnsweredBy is the set classified as a machine (spec.md §4.6
// classification table).
var machineAnsweredBy = map[string]bool{
	"machine_start":           true,
	"fax":                     true,
	"machine_beep":            true,
	"machine_end_silence":     true,
	"machine_end_other":       true,
	"machine_end_beep":        true,
}

var retryableTerminalStatus = map[string]bool{
	"no-answer": true,
	"busy":      true,
	"failed":    true,
}

var progressStatus = map[string]bool{
	"initiated":   true,
	"ringing":     true,
	"in-progress": true,
}

var completedStatus = map[string]bool{
	"completed": true,
	"canceled":  true,
}

// StatusEvent is the carrier-agnostic shape of one status-callback delivery
// (spec.md §4.6 input fields).
type StatusEvent struct {
	CarrierCallID string
	Status        string
	AnsweredBy    string
	Phone         string
}

// EndCaller best-effort terminates a live call on the carrier (spec.md §4.6
// step 4b) and releases any backend-side active-call bookkeeping once a
// call reaches a terminal status, however it got there.
type EndCaller interface {
	EndCall(ctx context.Context, carrierCallID string) error
	Release(carrierCallID string)
}

// Notifier emits a fire-and-forget observability event (spec.md §4.8). A nil
// Notifier is valid — events are simply skipped.
type Notifier interface {
	Notify(ctx context.Context, kind, contactID string, detail map[string]interface{})
}

// Handler drives the retry state machine for one status event at a time.
type Handler struct {
	callStates  callstate.Registry
	queue       queueing.Store
	carrier     EndCaller
	retryPolicy retry.Policy
	maxAttempts int
	notifier    Notifier
	logger      commons.Logger
}

// New builds a Handler. notifier may be nil.
func New(callStates callstate.Registry, queue queueing.Store, carrier EndCaller, retryPolicy retry.Policy, maxAttempts int, notifier Notifier, logger commons.Logger) *Handler {
	return &Handler{callStates: callStates, queue: queue, carrier: carrier, retryPolicy: retryPolicy, maxAttempts: maxAttempts, notifier: notifier, logger: logger}
}

func (h *Handler) notify(ctx context.Context, kind, contactID string, detail map[string]interface{}) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(ctx, kind, contactID, detail)
}

// Handle implements spec.md §4.6 steps 1-7. It never returns an error the
// caller must act on beyond a 200 — every branch, including "dropped", is a
// terminal outcome for this delivery.
func (h *Handler) Handle(ctx context.Context, ev StatusEvent) {
	state, err := h.callStates.Get(ctx, ev.CarrierCallID)
	if err != nil {
		if errors.Is(err, callstate.ErrNotFound) {
			h.logger.Warnw("status ingress: call state not found after bounded retry, dropping event", "carrierCallId", ev.CarrierCallID, "status", ev.Status)
			return
		}
		h.logger.Errorf("status ingress: lookup failed for %s: %v", ev.CarrierCallID, err)
		return
	}

	if state.RetryScheduled {
		h.logger.Debugf("status ingress: retry already scheduled for %s, dropping duplicate event", ev.CarrierCallID)
		return
	}

	if ev.AnsweredBy != "" && ev.AnsweredBy != state.AnsweredBy {
		if err := h.callStates.Update(ctx, ev.CarrierCallID, map[string]interface{}{"answered_by": ev.AnsweredBy}); err != nil {
			h.logger.Errorf("status ingress: persist answered_by for %s: %v", ev.CarrierCallID, err)
		}
		state.AnsweredBy = ev.AnsweredBy
	}

	isMachine := machineAnsweredBy[ev.AnsweredBy]

	switch {
	case progressStatus[ev.Status] && isMachine:
		h.machineDetectedMidCall(ctx, state, ev)
	case progressStatus[ev.Status]:
		// progress, no action (spec.md §4.6 classification table).
	case retryableTerminalStatus[ev.Status]:
		h.carrier.Release(ev.CarrierCallID)
		h.scheduleRetry(ctx, state, "carrier_terminal_failure")
	case completedStatus[ev.Status] && isMachine:
		h.carrier.Release(ev.CarrierCallID)
		h.scheduleRetry(ctx, state, "machine_detected")
	case completedStatus[ev.Status]:
		h.carrier.Release(ev.CarrierCallID)
		if err := h.callStates.Update(ctx, ev.CarrierCallID, map[string]interface{}{"status": callstate.StatusCompleted}); err != nil {
			h.logger.Errorf("status ingress: persist terminal status for %s: %v", ev.CarrierCallID, err)
		}
		h.logger.Infof("call completed successfully: carrierCallId=%s contactId=%s", ev.CarrierCallID, state.ContactID)
		h.notify(ctx, "call_completed", state.ContactID, map[string]interface{}{"carrierCallId": ev.CarrierCallID, "attempt": state.AttemptIndex})
	default:
		// terminal, non-retryable otherwise: release bookkeeping, acknowledge only.
		h.carrier.Release(ev.CarrierCallID)
	}
}

func (h *Handler) machineDetectedMidCall(ctx context.Context, state *callstate.CallState, ev StatusEvent) {
	won, err := h.callStates.LatchRetryScheduled(ctx, ev.CarrierCallID)
	if err != nil {
		h.logger.Errorf("status ingress: latch retry-scheduled for %s: %v", ev.CarrierCallID, err)
		return
	}
	if !won {
		return
	}

	if err := h.carrier.EndCall(ctx, ev.CarrierCallID); err != nil {
		h.logger.Warnw("status ingress: best-effort end-call failed", "carrierCallId", ev.CarrierCallID, "error", err.Error())
	}

	h.enqueueRetry(ctx, state, "machine_detected")
}

func (h *Handler) scheduleRetry(ctx context.Context, state *callstate.CallState, reason string) {
	won, err := h.callStates.LatchRetryScheduled(ctx, state.CarrierCallID)
	if err != nil {
		h.logger.Errorf("status ingress: latch retry-scheduled for %s: %v", state.CarrierCallID, err)
		return
	}
	if !won {
		return
	}
	h.enqueueRetry(ctx, state, reason)
}

func (h *Handler) enqueueRetry(ctx context.Context, state *callstate.CallState, reason string) {
	if retry.IsTerminal(state.AttemptIndex, h.maxAttempts) {
		h.logger.Infof("retry ladder exhausted, no further attempt: contactId=%s attempt=%d reason=%s", state.ContactID, state.AttemptIndex, reason)
		return
	}

	nextAttempt := state.AttemptIndex + 1
	result, err := h.retryPolicy.Next(nextAttempt-1, time.Now())
	if err != nil {
		h.logger.Errorf("status ingress: compute retry schedule for contact %s: %v", state.ContactID, err)
		return
	}

	firstAttemptAt := time.Now()
	if state.FirstAttemptAt != nil {
		firstAttemptAt = *state.FirstAttemptAt
	}

	entry := &queueing.QueueEntry{
		ContactID:           state.ContactID,
		Phone:               state.Phone,
		GivenName:           state.GivenName,
		FullName:            state.DisplayName,
		Email:               state.Email,
		FullAddress:         state.FullAddress,
		AttemptIndex:        nextAttempt,
		Status:              queueing.StatusPending,
		ScheduledAt:         result.ScheduledAt,
		FirstAttemptAt:      firstAttemptAt,
		RecoveryContextJSON: state.RecoveryContextJSON,
	}
	if err := h.queue.Insert(ctx, entry); err != nil {
		h.logger.Errorf("status ingress: enqueue retry for contact %s: %v", state.ContactID, err)
		return
	}

	h.logger.Infof("retry scheduled: contactId=%s attempt=%d reason=%s kind=%s scheduledAt=%s",
		state.ContactID, nextAttempt, reason, result.Kind, result.ScheduledAt)
}
