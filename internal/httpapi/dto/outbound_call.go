// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package dto holds the request/response shapes of the HTTP ingress
// (spec.md §6) and the mapstructure-based normalizer that tolerates the
// handful of aliased field names integrators actually send.
package dto

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// OutboundCallRequest is the canonical enqueue request (spec.md §6).
type OutboundCallRequest struct {
	Phone       string                 `mapstructure:"phone"`
	ContactID   string                 `mapstructure:"contact_id"`
	FirstName   string                 `mapstructure:"first_name"`
	FullName    string                 `mapstructure:"full_name"`
	Email       string                 `mapstructure:"email"`
	FullAddress string                 `mapstructure:"full_address"`
	CustomData  map[string]interface{} `mapstructure:"custom_data"`
}

// aliasKeys maps alternate field spellings integrators commonly send onto
// the canonical mapstructure tag.
var aliasKeys = map[string]string{
	"contactId":   "contact_id",
	"contactid":   "contact_id",
	"firstName":   "first_name",
	"fullName":    "full_name",
	"fullAddress": "full_address",
	"customData":  "custom_data",
	"to":          "phone",
	"phoneNumber": "phone",
	"phone_number": "phone",
}

// DecodeOutboundCallRequest normalizes a raw JSON body (already unmarshaled
// into a map) into OutboundCallRequest, tolerating the aliases above.
func DecodeOutboundCallRequest(raw map[string]interface{}) (OutboundCallRequest, error) {
	normalized := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		key := k
		if canonical, ok := aliasKeys[k]; ok {
			key = canonical
		}
		normalized[key] = v
	}

	var out OutboundCallRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return OutboundCallRequest{}, fmt.Errorf("build request decoder: %w", err)
	}
	if err := decoder.Decode(normalized); err != nil {
		return OutboundCallRequest{}, fmt.Errorf("decode outbound call request: %w", err)
	}
	return out, nil
}

// Validate enforces the minimum fields spec.md §6 requires.
func (r OutboundCallRequest) Validate() error {
	if r.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	if r.ContactID == "" {
		return fmt.Errorf("contact_id is required")
	}
	return nil
}
