// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package httpclient builds the single resty.Client shape every outbound
// HTTP integration (agent signed-URL issuer, CRM, notifier webhook) shares:
// bounded retries with backoff, a hard timeout, and structured request
// logging (spec.md §9 design note on downstream integrations).
package httpclient

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

// Options configures a single downstream HTTP integration.
type Options struct {
	BaseURL    string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration
}

// DefaultOptions returns the conservative defaults used when a downstream
// doesn't set its own values.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:    baseURL,
		MaxRetries: 3,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   4 * time.Second,
		Timeout:    10 * time.Second,
	}
}

// New builds a resty.Client configured per opts, with every request/response
// logged at debug level through logger.
func New(opts Options, logger commons.Logger) *resty.Client {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(opts.BaseDelay).
		SetRetryMaxWaitTime(opts.MaxDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debugf("http request: %s %s", req.Method, req.URL)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debugf("http response: %s %s -> %d in %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time())
		return nil
	})

	return client
}
