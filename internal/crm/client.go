// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package crm is the read interface onto the OAuth-protected CRM/scheduling
// backend the original source's worker flow calls out to (availability
// slots, appointment booking, workflow enrollment). The core never blocks on
// it during the retry path — it is consulted only while composing the
// dynamic context for an outbound call (SPEC_FULL.md §11.5).
package crm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Client is the CRM surface the initiator/agent-context builder depends on.
type Client interface {
	// GetContact fetches the contact record by id, used to fill any dynamic
	// variables not already present on the queue entry.
	GetContact(ctx context.Context, contactID string) (Contact, error)

	// AvailabilitySlots returns a pre-formatted availability string for the
	// agent's dynamic variables (spec.md §4.7 step 2).
	AvailabilitySlots(ctx context.Context, contactID string) (string, error)

	// BookAppointment books the slot the agent negotiated during the call.
	BookAppointment(ctx context.Context, contactID, slot string) error
}

// Contact is the subset of CRM contact fields the core cares about.
type Contact struct {
	ContactID   string `json:"contact_id"`
	GivenName   string `json:"given_name"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
}

type restyClient struct {
	http        *resty.Client
	clientID    string
	clientSecret string
}

// New builds a Client backed by a resty.Client pre-configured with the CRM
// base URL (internal/httpclient.New). Auth uses a client-credentials bearer
// token the caller attaches via the client's auth middleware; this package
// does not perform its own token refresh (spec.md §3.3: OAuth refresh is a
// single-writer routine external to this interface).
func New(http *resty.Client, clientID, clientSecret string) Client {
	return &restyClient{http: http, clientID: clientID, clientSecret: clientSecret}
}

func (c *restyClient) GetContact(ctx context.Context, contactID string) (Contact, error) {
	var out Contact
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/contacts/" + contactID)
	if err != nil {
		return Contact{}, fmt.Errorf("crm get contact %s: %w", contactID, err)
	}
	if resp.IsError() {
		return Contact{}, fmt.Errorf("crm get contact %s: status %d", contactID, resp.StatusCode())
	}
	return out, nil
}

func (c *restyClient) AvailabilitySlots(ctx context.Context, contactID string) (string, error) {
	var out struct {
		FormattedSlots string `json:"formatted_slots"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/contacts/" + contactID + "/availability")
	if err != nil {
		return "", fmt.Errorf("crm availability for %s: %w", contactID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("crm availability for %s: status %d", contactID, resp.StatusCode())
	}
	return out.FormattedSlots, nil
}

func (c *restyClient) BookAppointment(ctx context.Context, contactID, slot string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"slot": slot}).
		Post("/contacts/" + contactID + "/appointments")
	if err != nil {
		return fmt.Errorf("crm book appointment for %s: %w", contactID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("crm book appointment for %s: status %d", contactID, resp.StatusCode())
	}
	return nil
}
