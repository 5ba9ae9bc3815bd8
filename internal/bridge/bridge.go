// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/outbound-dialer/internal/agent"
	"github.com/rapidaai/outbound-dialer/internal/callstate"
	"github.com/rapidaai/outbound-dialer/internal/commons"
)

const agentDialTimeout = 10 * time.Second

// errBridgeClosed is returned by the forwarding goroutines on every normal
// teardown path. errgroup only cancels its derived context when a Go
// function returns a non-nil error, so a normal close must still return one
// — Run distinguishes "closed" from "closed abnormally" by unwrapping it.
var errBridgeClosed = fmt.Errorf("bridge closed")

// Run owns one call's media bridge end to end: it dials the agent, sends the
// initiation frame, then runs both forwarding directions until either socket
// closes (spec.md §4.7). Run blocks until the bridge tears down; it never
// returns an error that the caller must retry — every failure mode here
// (dial failure, write failure, close) ends the bridge, it does not restart
// it.
func Run(ctx context.Context, carrierConn *websocket.Conn, signedURL string, streamSid, carrierCallID string, vars agent.DynamicVariables, recovery *agent.RecoveryOverride, registry callstate.Registry, logger commons.Logger) {
	agentConn, err := dialAgent(ctx, signedURL)
	if err != nil {
		logger.Errorf("bridge %s: agent dial failed: %v", carrierCallID, err)
		_ = carrierConn.Close()
		return
	}
	defer agentConn.Close()
	defer carrierConn.Close()

	frame := agent.NewInitiationFrame(vars, recovery)
	if err := agentConn.WriteJSON(frame); err != nil {
		logger.Errorf("bridge %s: initiation frame write failed: %v", carrierCallID, err)
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return carrierToAgent(gCtx, carrierConn, agentConn, logger, carrierCallID)
	})
	g.Go(func() error {
		return agentToCarrier(gCtx, carrierConn, agentConn, registry, logger, carrierCallID, streamSid)
	})

	// Either goroutine returning — closed or not — ends the bridge: closing
	// both handles unblocks whichever side is still parked in a socket read
	// (spec.md §4.7 step 5, termination of either side closes the other).
	go func() {
		<-gCtx.Done()
		_ = carrierConn.Close()
		_ = agentConn.Close()
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, errBridgeClosed) {
		logger.Warnw("bridge closed abnormally", "carrierCallId", carrierCallID, "error", err.Error())
	} else {
		logger.Debugf("bridge %s: closed normally", carrierCallID)
	}
}

func dialAgent(ctx context.Context, signedURL string) (*websocket.Conn, error) {
	u, err := url.Parse(signedURL)
	if err != nil {
		return nil, fmt.Errorf("parse signed url: %w", err)
	}
	dialer := websocket.Dialer{HandshakeTimeout: agentDialTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}
	conn.SetReadLimit(10 * 1024 * 1024)
	return conn, nil
}

// carrierToAgent forwards carrier media frames as agent user-audio frames
// (spec.md §4.7 step 3). It is the only goroutine that reads the carrier
// socket, so it also recognizes the carrier's stop event as the bridge's
// teardown signal.
func carrierToAgent(ctx context.Context, carrierConn, agentConn *websocket.Conn, logger commons.Logger, carrierCallID string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := carrierConn.ReadMessage()
		if err != nil {
			return classifyClose(err, "carrier")
		}

		var in carrierInFrame
		if err := json.Unmarshal(data, &in); err != nil {
			logger.Warnw("bridge: unparseable carrier frame", "carrierCallId", carrierCallID, "error", err.Error())
			continue
		}

		switch in.Event {
		case "media":
			if in.Media == nil {
				continue
			}
			if err := agentConn.WriteJSON(newAgentUserAudioFrame(in.Media.Payload)); err != nil {
				return fmt.Errorf("write agent user_audio frame: %w", err)
			}
		case "stop":
			return errBridgeClosed
		}
	}
}

// agentToCarrier forwards agent frames to the carrier per the frame-type
// table of spec.md §4.7 step 4.
func agentToCarrier(ctx context.Context, carrierConn, agentConn *websocket.Conn, registry callstate.Registry, logger commons.Logger, carrierCallID, streamSid string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := agentConn.ReadMessage()
		if err != nil {
			return classifyClose(err, "agent")
		}

		var frame agentFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warnw("bridge: unparseable agent frame", "carrierCallId", carrierCallID, "error", err.Error())
			continue
		}

		switch frame.Type {
		case "audio":
			var env agentAudioEnvelope
			if err := json.Unmarshal(frame.Raw, &env); err != nil {
				logger.Warnw("bridge: unparseable audio frame", "carrierCallId", carrierCallID, "error", err.Error())
				continue
			}
			payload, ok := env.base64Payload()
			if !ok {
				continue
			}
			if err := carrierConn.WriteJSON(newCarrierMediaFrame(streamSid, payload)); err != nil {
				return fmt.Errorf("write carrier media frame: %w", err)
			}

		case "interruption":
			if err := carrierConn.WriteJSON(newCarrierClearFrame(streamSid)); err != nil {
				return fmt.Errorf("write carrier clear frame: %w", err)
			}

		case "ping":
			var ping agentPingEnvelope
			if err := json.Unmarshal(frame.Raw, &ping); err != nil {
				continue
			}
			if err := agentConn.WriteJSON(newAgentPongFrame(ping.PingEvent.EventID)); err != nil {
				return fmt.Errorf("write agent pong frame: %w", err)
			}

		case "conversation_initiation_metadata":
			var meta agentConversationMetadataEnvelope
			if err := json.Unmarshal(frame.Raw, &meta); err != nil {
				continue
			}
			if meta.ConversationInitiationMetadataEvent.ConversationID != "" {
				if err := registry.Update(ctx, carrierCallID, map[string]interface{}{
					"conversation_id": meta.ConversationInitiationMetadataEvent.ConversationID,
				}); err != nil {
					logger.Warnw("bridge: failed to persist conversation id", "carrierCallId", carrierCallID, "error", err.Error())
				}
			}

		default:
			// transcript/agent-response frames are intentionally ignored
			// by the bridge (spec.md §4.7 step 4).
		}
	}
}

func classifyClose(err error, side string) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		return errBridgeClosed
	}
	return fmt.Errorf("%s socket closed abnormally: %w", side, err)
}
