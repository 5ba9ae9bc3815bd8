// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rapidaai/outbound-dialer/internal/agent"
	"github.com/rapidaai/outbound-dialer/internal/bridge"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// startEventFrame is the first frame the carrier sends once the media
// stream is open (spec.md §4.7: "opened when the carrier signals stream
// start").
type startEventFrame struct {
	Event string `json:"event"`
	Start struct {
		StreamSid        string            `json:"streamSid"`
		CallSid          string            `json:"callSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start"`
}

// handleMediaStream implements WS /outgoing/outbound-media-stream
// (spec.md §6). It upgrades the connection, reads the carrier's start
// event to resolve the CallState, and hands the two sockets to the bridge.
func (h *handlers) handleMediaStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.deps.Logger.Warnw("media stream: websocket upgrade failed", "error", err.Error())
		return
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		h.deps.Logger.Warnw("media stream: failed to read start event", "error", err.Error())
		_ = conn.Close()
		return
	}

	var start startEventFrame
	if err := json.Unmarshal(data, &start); err != nil || start.Start.CallSid == "" {
		h.deps.Logger.Warnw("media stream: unparseable start event", "error", err)
		_ = conn.Close()
		return
	}

	// The HTTP request's own context ends as soon as this handler returns,
	// but the hijacked websocket — and the bridge goroutine driving it —
	// lives far longer than that. Everything below uses an independent
	// background context (spec.md §4.7: bridge lifetime is bounded by the
	// sockets themselves, not by the request that opened them).
	ctx := context.Background()
	state, err := h.deps.CallStates.Get(ctx, start.Start.CallSid)
	if err != nil {
		h.deps.Logger.Errorf("media stream: no call state for %s: %v", start.Start.CallSid, err)
		_ = conn.Close()
		return
	}

	vars := agent.DynamicVariables{
		GivenName:   start.Start.CustomParameters["firstName"],
		FullName:    start.Start.CustomParameters["fullName"],
		Email:       start.Start.CustomParameters["email"],
		Phone:       state.Phone,
		ContactID:   state.ContactID,
		AddressLine: start.Start.CustomParameters["fullAddress"],
	}

	// Availability slots are a CRM enrichment, not a core requirement of the
	// call — a slow or failing CRM must never delay opening the bridge
	// (spec.md §4.7 step 2: "domain-specific fields such as pre-formatted
	// availability slots").
	if h.deps.CRM != nil {
		availCtx, availCancel := context.WithTimeout(ctx, 2*time.Second)
		slots, err := h.deps.CRM.AvailabilitySlots(availCtx, state.ContactID)
		availCancel()
		if err != nil {
			h.deps.Logger.Debugf("media stream: availability lookup failed for %s: %v", state.ContactID, err)
		} else {
			vars.Availability = slots
		}
	}

	var recovery *agent.RecoveryOverride
	if state.RecoveryContextJSON != "" {
		var rc queueing.RecoveryContext
		if err := json.Unmarshal([]byte(state.RecoveryContextJSON), &rc); err == nil {
			recovery = &agent.RecoveryOverride{
				PastCallSummary:        rc.PastCallSummary,
				OriginalConversationID: rc.OriginalConversationID,
				FirstMessageOverride:   "I see we spoke before, let's continue from where we left off.",
			}
		}
	}

	go bridge.Run(ctx, conn, state.SignedURL, start.Start.StreamSid, start.Start.CallSid, vars, recovery, h.deps.CallStates, h.deps.Logger)
}
