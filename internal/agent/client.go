// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package agent issues the signed WebSocket URL the bridge dials into the AI
// agent, and defines the initiation-frame shape the bridge sends once that
// socket is open (spec.md §4.7 steps 1-2).
package agent

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

// SignedURLIssuer fetches a fresh, short-lived signed URL for a single call.
type SignedURLIssuer interface {
	IssueSignedURL(ctx context.Context, contactID string) (string, error)
}

type restyIssuer struct {
	client    *resty.Client
	agentID   string
	apiKey    string
	fallback  string
	logger    commons.Logger
}

// NewSignedURLIssuer builds a SignedURLIssuer. fallbackSignedURL, when
// non-empty, is returned if the remote issuance call fails — it is the
// statically configured AGENT_SIGNED_URL used by deployments that front a
// single long-lived agent endpoint instead of per-call signing.
func NewSignedURLIssuer(client *resty.Client, agentID, apiKey, fallbackSignedURL string, logger commons.Logger) SignedURLIssuer {
	return &restyIssuer{client: client, agentID: agentID, apiKey: apiKey, fallback: fallbackSignedURL, logger: logger}
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

func (r *restyIssuer) IssueSignedURL(ctx context.Context, contactID string) (string, error) {
	var out signedURLResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("xi-api-key", r.apiKey).
		SetQueryParam("agent_id", r.agentID).
		SetResult(&out).
		Get("/v1/convai/conversation/get-signed-url")

	if err == nil && resp.IsSuccess() && out.SignedURL != "" {
		return out.SignedURL, nil
	}

	if r.fallback != "" {
		r.logger.Warnw("signed-url issuance failed, using configured fallback", "contactId", contactID, "error", errString(err, resp))
		return r.fallback, nil
	}

	return "", fmt.Errorf("issue signed url for contact %s: %s", contactID, errString(err, resp))
}

func errString(err error, resp *resty.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status %d", resp.StatusCode())
	}
	return "unknown error"
}
