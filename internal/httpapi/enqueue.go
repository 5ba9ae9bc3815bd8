// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/outbound-dialer/internal/httpapi/dto"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
)

// enqueueOutboundCall implements POST /outgoing/outbound-call (spec.md §6).
func (h *handlers) enqueueOutboundCall(c *gin.Context) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json body"})
		return
	}

	req, err := dto.DecodeOutboundCallRequest(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	now := time.Now()
	entry := &queueing.QueueEntry{
		ContactID:      req.ContactID,
		Phone:          req.Phone,
		GivenName:      req.FirstName,
		FullName:       req.FullName,
		Email:          req.Email,
		FullAddress:    req.FullAddress,
		AttemptIndex:   0,
		Status:         queueing.StatusPending,
		ScheduledAt:    now,
		FirstAttemptAt: now,
	}

	if err := h.deps.Queue.Insert(c.Request.Context(), entry); err != nil {
		h.deps.Logger.Errorf("enqueue outbound call for contact %s: %v", req.ContactID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to enqueue"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "queueId": entry.ID})
}
