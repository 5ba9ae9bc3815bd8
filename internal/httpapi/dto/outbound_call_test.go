// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeOutboundCallRequest_AliasKeys(t *testing.T) {
	raw := map[string]interface{}{
		"to":        "+15551234567",
		"contactId": "c-1",
		"firstName": "Ada",
	}

	req, err := DecodeOutboundCallRequest(raw)
	require.NoError(t, err)
	require.Equal(t, "+15551234567", req.Phone)
	require.Equal(t, "c-1", req.ContactID)
	require.Equal(t, "Ada", req.FirstName)
}

func TestDecodeOutboundCallRequest_CanonicalKeys(t *testing.T) {
	raw := map[string]interface{}{
		"phone":      "+15551234567",
		"contact_id": "c-1",
	}

	req, err := DecodeOutboundCallRequest(raw)
	require.NoError(t, err)
	require.Equal(t, "+15551234567", req.Phone)
	require.Equal(t, "c-1", req.ContactID)
}

func TestOutboundCallRequest_Validate(t *testing.T) {
	require.Error(t, OutboundCallRequest{}.Validate())
	require.Error(t, OutboundCallRequest{Phone: "+1"}.Validate())
	require.NoError(t, OutboundCallRequest{Phone: "+1", ContactID: "c1"}.Validate())
}
