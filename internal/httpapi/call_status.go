// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/outbound-dialer/internal/ingress"
)

// handleCallStatus implements POST /outgoing/call-status (spec.md §4.6,
// §6). The carrier delivers this as form-encoded fields regardless of
// provider, so no callback-token lookup is required here — the call state
// row is keyed on the carrier's own call id.
func (h *handlers) handleCallStatus(c *gin.Context) {
	ev := ingress.StatusEvent{
		CarrierCallID: c.PostForm("CallSid"),
		Status:        c.PostForm("CallStatus"),
		AnsweredBy:    c.PostForm("AnsweredBy"),
		Phone:         c.PostForm("To"),
	}
	if ev.CarrierCallID == "" {
		c.String(http.StatusBadRequest, "missing CallSid")
		return
	}

	h.deps.Ingress.Handle(c.Request.Context(), ev)
	c.String(http.StatusOK, "ok")
}
