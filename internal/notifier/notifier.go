// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package notifier implements the fire-and-forget event sink of spec.md
// §4.8: failures here must never fail a core operation or alter its
// outcome.
package notifier

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

// Event is a structured observability notification.
type Event struct {
	Kind      string                 `json:"kind"`
	ContactID string                 `json:"contact_id,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	At        time.Time              `json:"at"`
}

// Sink posts events to the configured webhook, dropping every error.
type Sink struct {
	http   *resty.Client
	logger commons.Logger
}

// New builds a Sink that posts every event to http's base URL.
func New(http *resty.Client, logger commons.Logger) *Sink {
	return &Sink{http: http, logger: logger}
}

// Notify fires the webhook in its own goroutine and never blocks the caller.
// It satisfies the small Notify(ctx, kind, contactID, detail) shape that
// ingress depends on, so that package doesn't need to import this one just
// to emit an observability event.
func (s *Sink) Notify(ctx context.Context, kind, contactID string, detail map[string]interface{}) {
	ev := Event{Kind: kind, ContactID: contactID, Detail: detail, At: time.Now()}
	go func() {
		_, err := s.http.R().SetContext(ctx).SetBody(ev).Post("")
		if err != nil {
			s.logger.Debugf("notifier: webhook delivery failed, dropped: %v", err)
		}
	}()
}
