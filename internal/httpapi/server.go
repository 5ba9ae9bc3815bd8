// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package httpapi wires the four routes of spec.md §6 onto a gin engine.
package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rapidaai/outbound-dialer/internal/callback"
	"github.com/rapidaai/outbound-dialer/internal/callstate"
	"github.com/rapidaai/outbound-dialer/internal/carrier"
	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/crm"
	"github.com/rapidaai/outbound-dialer/internal/ingress"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
)

// Deps bundles everything the routes need.
type Deps struct {
	Queue       queueing.Store
	CallStates  callstate.Registry
	Carrier     carrier.Client
	Ingress     *ingress.Handler
	Tokens      callback.Signer
	CRM         crm.Client
	Logger      commons.Logger
	SourcePhone string
	RoutePrefix string
}

// NewEngine builds the gin.Engine with CORS and every route of spec.md §6
// mounted under routePrefix (default /outgoing).
func NewEngine(routePrefix string, deps Deps) *gin.Engine {
	deps.RoutePrefix = routePrefix
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ginLogger(deps.Logger))
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"*"},
	}))

	group := engine.Group(routePrefix)
	h := &handlers{deps: deps}
	{
		group.POST("/outbound-call", h.enqueueOutboundCall)
		group.POST("/call-status", h.handleCallStatus)
		group.Any("/outbound-call-twiml", h.handleTwiML)
		group.GET("/outbound-media-stream", h.handleMediaStream)
	}

	engine.GET("/healthz", h.healthz)
	return engine
}

func ginLogger(logger commons.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
