// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package httpapi

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// twimlStreamParam is one <Parameter> child of <Stream>, carrying per-call
// display-name context to the media-stream socket (spec.md §6 stream-connect
// payload). The media-stream handler still reads the CallState row for the
// signed URL, phone, contact id and recovery context.
type twimlStreamParam struct {
	XMLName xml.Name `xml:"Parameter"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

type twimlStream struct {
	XMLName xml.Name           `xml:"Stream"`
	URL     string             `xml:"url,attr"`
	Params  []twimlStreamParam `xml:"Parameter"`
}

type twimlConnect struct {
	XMLName xml.Name     `xml:"Connect"`
	Stream  twimlStream  `xml:"Stream"`
}

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

// handleTwiML implements ALL /outgoing/outbound-call-twiml (spec.md §6): it
// answers the carrier with a stream-connect document instructing it to open
// the media-stream WebSocket, carrying every per-call context field the
// bridge needs as XML-escaped <Parameter> elements.
func (h *handlers) handleTwiML(c *gin.Context) {
	token := c.Query("ctx")
	claims, err := h.deps.Tokens.Verify(token)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid context token")
		return
	}

	streamURL := fmt.Sprintf("wss://%s%s/outbound-media-stream?ctx=%s", c.Request.Host, h.deps.RoutePrefix, token)

	doc := twimlResponse{
		Connect: twimlConnect{
			Stream: twimlStream{
				URL: streamURL,
				Params: []twimlStreamParam{
					{Name: "contactId", Value: claims.ContactID},
					{Name: "queueEntryId", Value: fmt.Sprintf("%d", claims.QueueEntryID)},
					{Name: "attemptIndex", Value: fmt.Sprintf("%d", claims.AttemptIndex)},
					{Name: "firstName", Value: claims.GivenName},
					{Name: "fullName", Value: claims.FullName},
					{Name: "email", Value: claims.Email},
					{Name: "phone", Value: claims.Phone},
					{Name: "fullAddress", Value: claims.FullAddress},
				},
			},
		},
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, xml.Header+mustMarshalIndent(doc))
}

func mustMarshalIndent(v interface{}) string {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return "<Response></Response>"
	}
	return string(b)
}
