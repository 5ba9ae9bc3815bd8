// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package initiator implements queueing.Initiator: it turns one claimed
// queue entry into one live carrier call (spec.md §4.1 step 5, §4.4).
package initiator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rapidaai/outbound-dialer/internal/agent"
	"github.com/rapidaai/outbound-dialer/internal/callback"
	"github.com/rapidaai/outbound-dialer/internal/callstate"
	"github.com/rapidaai/outbound-dialer/internal/carrier"
	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
)

// Initiator places one outbound call for a claimed queue entry.
type Initiator struct {
	carrier       carrier.Client
	signedURLs    agent.SignedURLIssuer
	callStates    callstate.Registry
	tokens        callback.Signer
	logger        commons.Logger
	sourcePhone   string
	publicURL     string
	routePrefix   string
	ringTimeout   time.Duration
	callTimeLimit time.Duration
}

// New builds an Initiator. ringTimeout and callTimeLimit are passed to the
// carrier on every CreateCall (spec.md §4.5 step 3: 25s ringing, ≤900s
// call time-limit).
func New(client carrier.Client, signedURLs agent.SignedURLIssuer, callStates callstate.Registry, tokens callback.Signer, logger commons.Logger, sourcePhone, publicURL, routePrefix string, ringTimeout, callTimeLimit time.Duration) *Initiator {
	return &Initiator{
		carrier:       client,
		signedURLs:    signedURLs,
		callStates:    callStates,
		tokens:        tokens,
		logger:        logger,
		sourcePhone:   sourcePhone,
		publicURL:     publicURL,
		routePrefix:   routePrefix,
		ringTimeout:   ringTimeout,
		callTimeLimit: callTimeLimit,
	}
}

// Initiate satisfies queueing.Initiator. It pre-fetches a signed URL,
// composes the JWT-signed callback URL, places the carrier call, and writes
// the CallState row before returning — so that by the time the carrier's
// first status callback can possibly arrive, the row already exists (the
// registry's bounded Get retry absorbs any residual race).
func (i *Initiator) Initiate(ctx context.Context, entry *queueing.QueueEntry) error {
	signedURL, err := i.signedURLs.IssueSignedURL(ctx, entry.ContactID)
	if err != nil {
		return fmt.Errorf("issue signed url for contact %s: %w", entry.ContactID, err)
	}

	token, err := i.tokens.Sign(entry.ID, entry.ContactID, entry.AttemptIndex, callback.ContactContext{
		GivenName:   entry.GivenName,
		FullName:    entry.FullName,
		Email:       entry.Email,
		Phone:       entry.Phone,
		FullAddress: entry.FullAddress,
	})
	if err != nil {
		return fmt.Errorf("sign callback token for contact %s: %w", entry.ContactID, err)
	}

	twimlURL := fmt.Sprintf("%s%s/outbound-call-twiml?ctx=%s", i.publicURL, i.routePrefix, token)
	statusURL := fmt.Sprintf("%s%s/call-status?ctx=%s", i.publicURL, i.routePrefix, token)

	result, err := i.carrier.CreateCall(ctx, carrier.CreateCallRequest{
		To:            entry.Phone,
		From:          i.sourcePhone,
		CallbackURL:   twimlURL,
		StatusURL:     statusURL,
		RingTimeout:   i.ringTimeout,
		CallTimeLimit: i.callTimeLimit,
	})
	if err != nil {
		return fmt.Errorf("place carrier call to %s: %w", entry.Phone, err)
	}

	if entry.RecoveryContextJSON != "" {
		if !json.Valid([]byte(entry.RecoveryContextJSON)) {
			i.logger.Warnw("initiator: dropping malformed recovery context", "queueEntryId", entry.ID)
			entry.RecoveryContextJSON = ""
		}
	}

	state := &callstate.CallState{
		CarrierCallID:       result.CarrierCallID,
		QueueEntryID:        entry.ID,
		ContactID:           entry.ContactID,
		Phone:               entry.Phone,
		DisplayName:         entry.FullName,
		GivenName:           entry.GivenName,
		Email:               entry.Email,
		FullAddress:         entry.FullAddress,
		AttemptIndex:        entry.AttemptIndex,
		Status:              callstate.StatusInitiated,
		SignedURL:           signedURL,
		FirstAttemptAt:      &entry.FirstAttemptAt,
		RecoveryContextJSON: entry.RecoveryContextJSON,
	}
	if err := i.callStates.Put(ctx, state); err != nil {
		// The carrier call is already placed; leaving it untracked would
		// mean its status callbacks land nowhere. This is a failure this
		// initiation must surface so the queue entry is marked failed
		// rather than silently orphaned.
		return fmt.Errorf("persist call state for carrier call %s: %w", result.CarrierCallID, err)
	}

	// Read the row back once (spec.md §4.5 step 6): a write that didn't
	// actually land would otherwise surface only much later, as an
	// inexplicably unmatched status callback.
	if _, err := i.callStates.Get(ctx, result.CarrierCallID); err != nil {
		i.logger.Errorf("CRITICAL: call state write-verify failed for carrier call %s contact %s: %v", result.CarrierCallID, entry.ContactID, err)
		return fmt.Errorf("verify call state write for carrier call %s: %w", result.CarrierCallID, err)
	}

	i.logger.Infof("call initiated: carrierCallId=%s contactId=%s attempt=%d", result.CarrierCallID, entry.ContactID, entry.AttemptIndex)
	return nil
}
