// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package bridge

import (
	"github.com/gorilla/websocket"

	"github.com/rapidaai/outbound-dialer/internal/agent"
)

// Session is the transient, in-memory per-call record of spec.md §3.4: the
// carrier stream identifiers, the dynamic context the agent needs, and the
// two live socket handles. It never touches the durable store directly —
// CallState mutations go through the Registry passed to Run.
type Session struct {
	CarrierCallID string
	StreamSid     string

	ContactID        string
	DynamicVariables agent.DynamicVariables
	Recovery         *agent.RecoveryOverride

	CarrierConn *websocket.Conn
	AgentConn   *websocket.Conn
}
