// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package agent

// DynamicVariables carries the per-call context the agent needs to greet and
// personalize the conversation (spec.md §4.7 step 2, §3.4).
type DynamicVariables struct {
	GivenName   string `json:"given_name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ContactID   string `json:"contact_id,omitempty"`
	Availability string `json:"availability,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
}

// RecoveryOverride carries the abrupt-ending-retry context, present only
// when the queue entry being initiated is a retry that carries a
// RecoveryContext (SPEC_FULL.md §11.4).
type RecoveryOverride struct {
	PastCallSummary        string `json:"past_call_summary"`
	OriginalConversationID string `json:"original_conversation_id"`
	FirstMessageOverride   string `json:"first_message_override"`
}

// InitiationFrame is the single frame the bridge sends immediately after
// dialing the agent's signed URL (spec.md §4.7 step 2).
type InitiationFrame struct {
	Type                string            `json:"type"`
	DynamicVariables     DynamicVariables  `json:"dynamic_variables"`
	RecoveryOverride     *RecoveryOverride `json:"recovery_override,omitempty"`
}

// NewInitiationFrame builds the frame, attaching a RecoveryOverride only
// when recovery context is present.
func NewInitiationFrame(vars DynamicVariables, recovery *RecoveryOverride) InitiationFrame {
	return InitiationFrame{
		Type:             "conversation_initiation_client_data",
		DynamicVariables: vars,
		RecoveryOverride: recovery,
	}
}
