// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package twilio adapts twilio-go to the carrier.Client surface.
package twilio

import (
	"context"
	"fmt"

	twilioclient "github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/rapidaai/outbound-dialer/internal/carrier"
	"github.com/rapidaai/outbound-dialer/internal/commons"
)

type twilioCarrier struct {
	client     *twilioclient.RestClient
	accountSid string
	logger     commons.Logger
}

// New builds a carrier.Client backed by a Twilio account.
func New(accountSid, authToken string, logger commons.Logger) carrier.Client {
	client := twilioclient.NewRestClientWithParams(twilioclient.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &twilioCarrier{client: client, accountSid: accountSid, logger: logger}
}

func (t *twilioCarrier) CreateCall(ctx context.Context, req carrier.CreateCallRequest) (carrier.CreateCallResult, error) {
	params := &api.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetUrl(req.CallbackURL)
	params.SetStatusCallback(req.StatusURL)
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	params.SetStatusCallbackMethod("POST")

	// Async AMD: without it Twilio never emits AnsweredBy on the status
	// callback, so the machine-detected retry path (spec.md §4.6 step 4)
	// can never fire.
	params.SetMachineDetection("Enable")
	params.SetAsyncAmd("true")
	if req.RingTimeout > 0 {
		params.SetTimeout(int(req.RingTimeout.Seconds()))
	}
	if req.CallTimeLimit > 0 {
		params.SetTimeLimit(int(req.CallTimeLimit.Seconds()))
	}

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return carrier.CreateCallResult{}, fmt.Errorf("twilio create call to %s: %w", req.To, err)
	}
	if resp.Sid == nil {
		return carrier.CreateCallResult{}, fmt.Errorf("twilio create call to %s: empty call sid in response", req.To)
	}
	t.logger.Infof("twilio call created: sid=%s to=%s", *resp.Sid, req.To)
	return carrier.CreateCallResult{CarrierCallID: *resp.Sid}, nil
}

func (t *twilioCarrier) EndCall(ctx context.Context, carrierCallID string) error {
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := t.client.Api.UpdateCall(carrierCallID, params); err != nil {
		return fmt.Errorf("twilio end call %s: %w", carrierCallID, err)
	}
	return nil
}

// Release is a no-op: CountActiveCalls queries Twilio's account state
// directly, so there is no local bookkeeping to release.
func (t *twilioCarrier) Release(carrierCallID string) {}

// activeCallStatuses is spec.md §4.4 step 1's definition of "active": a
// call occupies carrier capacity from the moment it's queued through the
// end of ringing, not just while it's in-progress.
var activeCallStatuses = []string{"queued", "ringing", "in-progress"}

func (t *twilioCarrier) CountActiveCalls(ctx context.Context) (int, error) {
	total := 0
	for _, status := range activeCallStatuses {
		params := &api.ListCallParams{}
		params.SetStatus(status)
		pageSize := 1000
		params.SetPageSize(pageSize)

		calls, err := t.client.Api.ListCall(params)
		if err != nil {
			return 0, fmt.Errorf("twilio list %s calls: %w", status, err)
		}
		total += len(calls)
	}
	return total, nil
}
