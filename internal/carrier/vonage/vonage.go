// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package vonage adapts vonage-go-sdk to the carrier.Client surface.
package vonage

import (
	"context"
	"fmt"
	"sync"

	vng "github.com/vonage/vonage-go-sdk"

	"github.com/rapidaai/outbound-dialer/internal/carrier"
	"github.com/rapidaai/outbound-dialer/internal/commons"
)

type vonageCarrier struct {
	voice  *vng.VoiceClient
	logger commons.Logger

	// vonage has no account-wide "list active calls" endpoint comparable to
	// Twilio's; track the ones this process placed itself (spec.md §9
	// design note on CARRIER_PROVIDER parity).
	mu     sync.Mutex
	active map[string]struct{}
}

// New builds a carrier.Client backed by a Vonage application, authenticated
// with a private key the same way the teacher platform's Auth helper does.
func New(applicationID string, privateKey []byte, logger commons.Logger) (carrier.Client, error) {
	auth, err := vng.CreateAuthFromAppPrivateKey(applicationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("vonage application auth: %w", err)
	}
	voiceClient := vng.NewVoiceClient(auth)
	return &vonageCarrier{voice: &voiceClient, logger: logger, active: make(map[string]struct{})}, nil
}

func (v *vonageCarrier) CreateCall(ctx context.Context, req carrier.CreateCallRequest) (carrier.CreateCallResult, error) {
	callReq := vng.CreateCallReq{
		To: []vng.CallTo{{Type: "phone", Number: req.To}},
		From: vng.CallFrom{
			Type:   "phone",
			Number: req.From,
		},
		AnswerUrl:    []string{req.CallbackURL},
		EventUrl:     []string{req.StatusURL},
		AnswerMethod: "GET",
		EventMethod:  "POST",
		// continue (rather than hangup) on machine detection: the retry
		// decision belongs to the status-ingress state machine, not the
		// carrier (spec.md §4.6 step 4).
		MachineDetection: "continue",
	}
	if req.RingTimeout > 0 {
		callReq.RingingTimer = int(req.RingTimeout.Seconds())
	}
	if req.CallTimeLimit > 0 {
		callReq.LengthTimer = int(req.CallTimeLimit.Seconds())
	}

	resp, _, err := v.voice.CreateCall(callReq)
	if err != nil {
		return carrier.CreateCallResult{}, fmt.Errorf("vonage create call to %s: %w", req.To, err)
	}
	if resp.Uuid == "" {
		return carrier.CreateCallResult{}, fmt.Errorf("vonage create call to %s: empty call uuid in response", req.To)
	}

	v.mu.Lock()
	v.active[resp.Uuid] = struct{}{}
	v.mu.Unlock()

	v.logger.Infof("vonage call created: uuid=%s to=%s", resp.Uuid, req.To)
	return carrier.CreateCallResult{CarrierCallID: resp.Uuid}, nil
}

func (v *vonageCarrier) EndCall(ctx context.Context, carrierCallID string) error {
	if _, _, err := v.voice.HangupCall(carrierCallID); err != nil {
		return fmt.Errorf("vonage end call %s: %w", carrierCallID, err)
	}
	v.forget(carrierCallID)
	return nil
}

func (v *vonageCarrier) CountActiveCalls(ctx context.Context) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.active), nil
}

// forget removes a tracked call from the active set. EndCall and Release
// both call it.
func (v *vonageCarrier) forget(carrierCallID string) {
	v.mu.Lock()
	delete(v.active, carrierCallID)
	v.mu.Unlock()
}

// Release satisfies carrier.Client: the status-ingress component calls this
// for every terminal status, which is the only way a Vonage call ever
// leaves the active set (there is no provider-side active-call query to
// reconcile against, unlike Twilio).
func (v *vonageCarrier) Release(carrierCallID string) {
	v.forget(carrierCallID)
}
