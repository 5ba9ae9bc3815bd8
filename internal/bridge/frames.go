// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package bridge implements the per-call media bridge of spec.md §4.7: a
// single cooperative task pairing the carrier media WebSocket with the AI
// agent WebSocket.
package bridge

import "encoding/json"

// carrierInFrame is the carrier's streaming-protocol envelope (Twilio/Vonage
// media-stream shape: event discriminator with one populated payload).
type carrierInFrame struct {
	Event string `json:"event"`
	Start *struct {
		StreamSid        string            `json:"streamSid"`
		CallSid          string            `json:"callSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
	Stop *struct {
		StreamSid string `json:"streamSid"`
	} `json:"stop,omitempty"`
}

// carrierOutFrame is what the bridge writes back to the carrier socket.
type carrierOutFrame struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

func newCarrierMediaFrame(streamSid, base64Payload string) carrierOutFrame {
	return carrierOutFrame{
		Event:     "media",
		StreamSid: streamSid,
		Media: &struct {
			Payload string `json:"payload"`
		}{Payload: base64Payload},
	}
}

func newCarrierClearFrame(streamSid string) carrierOutFrame {
	return carrierOutFrame{Event: "clear", StreamSid: streamSid}
}

// agentFrame is the generic envelope for every frame type the agent socket
// can emit (spec.md §4.7 step 4). Only the fields relevant to the frame's
// Type are populated; everything else is parsed lazily from Raw.
type agentFrame struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

func (f *agentFrame) UnmarshalJSON(data []byte) error {
	var typed struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	f.Type = typed.Type
	f.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// agentAudioEnvelope covers the two known shapes an "audio" agent frame
// arrives in (spec.md §4.7 step 4: "unwrap base64 payload from either of two
// known envelopes").
type agentAudioEnvelope struct {
	AudioEvent *struct {
		AudioBase64 string `json:"audio_base_64"`
	} `json:"audio_event,omitempty"`
	Audio *struct {
		Chunk string `json:"chunk"`
	} `json:"audio,omitempty"`
}

func (e agentAudioEnvelope) base64Payload() (string, bool) {
	if e.AudioEvent != nil && e.AudioEvent.AudioBase64 != "" {
		return e.AudioEvent.AudioBase64, true
	}
	if e.Audio != nil && e.Audio.Chunk != "" {
		return e.Audio.Chunk, true
	}
	return "", false
}

type agentPingEnvelope struct {
	PingEvent struct {
		EventID int `json:"event_id"`
	} `json:"ping_event"`
}

type agentConversationMetadataEnvelope struct {
	ConversationInitiationMetadataEvent struct {
		ConversationID string `json:"conversation_id"`
	} `json:"conversation_initiation_metadata_event"`
}

func newAgentUserAudioFrame(base64Payload string) map[string]interface{} {
	return map[string]interface{}{
		"user_audio_chunk": base64Payload,
	}
}

func newAgentPongFrame(eventID int) map[string]interface{} {
	return map[string]interface{}{
		"type": "pong",
		"pong_event": map[string]interface{}{
			"event_id": eventID,
		},
	}
}
