// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package carrier defines the transport-agnostic surface the scheduler and
// initiator depend on. Two concrete backends — twilio and vonage — satisfy
// it; the active one is selected at startup by CARRIER_PROVIDER (spec.md §5,
// §9 design note).
package carrier

import (
	"context"
	"time"
)

// CreateCallRequest is the carrier-agnostic call-placement request. Every
// backend is expected to enable asynchronous answering-machine detection
// and apply RingTimeout/CallTimeLimit verbatim (spec.md §4.5 step 3: 25s
// ringing, ≤900s call time-limit) — without async AMD the carrier never
// reports AnsweredBy and the machine-detected retry path can never fire.
type CreateCallRequest struct {
	To            string
	From          string
	CallbackURL   string
	StatusURL     string
	RingTimeout   time.Duration
	CallTimeLimit time.Duration
}

// CreateCallResult carries back the carrier's own identifier for the call —
// the key CallState is stored under (spec.md §3.2).
type CreateCallResult struct {
	CarrierCallID string
}

// Client is the carrier-agnostic surface spec.md §5 requires of any
// telephony backend.
type Client interface {
	// CreateCall places an outbound call and returns the carrier's call id.
	CreateCall(ctx context.Context, req CreateCallRequest) (CreateCallResult, error)

	// EndCall terminates a live call by carrier call id.
	EndCall(ctx context.Context, carrierCallID string) error

	// CountActiveCalls reports the account's current active call count
	// (queued, ringing or in-progress), the gate the scheduler checks before dispatching (spec.md §4.4).
	CountActiveCalls(ctx context.Context) (int, error)

	// Release tells the backend a call has reached a terminal status,
	// however it got there (retryable failure, human completion, or an
	// explicit EndCall). Twilio's CountActiveCalls queries the account
	// live, so this is a no-op; Vonage tracks active calls itself and must
	// be told to stop counting this one (spec.md §9 design note on
	// CARRIER_PROVIDER parity).
	Release(carrierCallID string)
}
