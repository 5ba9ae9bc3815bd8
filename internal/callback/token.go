// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package callback signs and verifies the short-lived context token embedded
// in the TwiML/status-callback URL the carrier calls back into. The TwiML
// handler reads queue entry, attempt index and contact fields from it without
// a database round trip; the status-callback handler ignores it and keys on
// the carrier call id instead.
package callback

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload embedded in the callback token. Display-name and
// contact fields ride along here rather than as bare query params (spec.md
// §4.5 step 2) so the TwiML/media-stream endpoints can read them back
// without a DB lookup, and so they can't be tampered with en route through
// the carrier.
type Claims struct {
	QueueEntryID uint64 `json:"queueEntryId"`
	ContactID    string `json:"contactId"`
	AttemptIndex int    `json:"attemptIndex"`
	GivenName    string `json:"givenName,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	FullAddress  string `json:"fullAddress,omitempty"`
	jwt.RegisteredClaims
}

// ContactContext is the display-name/contact bundle Sign carries into the
// token on top of the routing fields.
type ContactContext struct {
	GivenName   string
	FullName    string
	Email       string
	Phone       string
	FullAddress string
}

// Signer issues and verifies callback tokens with a single HMAC secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a Signer. ttl bounds how long a token stays valid —
// comfortably longer than the carrier's own call-setup timeout.
func NewSigner(secret string, ttl time.Duration) Signer {
	return Signer{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for the given queue entry/attempt, carrying contact
// along for the downstream TwiML/media-stream handlers.
func (s Signer) Sign(queueEntryID uint64, contactID string, attemptIndex int, contact ContactContext) (string, error) {
	now := time.Now()
	claims := Claims{
		QueueEntryID: queueEntryID,
		ContactID:    contactID,
		AttemptIndex: attemptIndex,
		GivenName:    contact.GivenName,
		FullName:     contact.FullName,
		Email:        contact.Email,
		Phone:        contact.Phone,
		FullAddress:  contact.FullAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign callback token for contact %s: %w", contactID, err)
	}
	return signed, nil
}

// Verify parses and validates a callback token, returning its claims.
func (s Signer) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify callback token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("verify callback token: invalid token")
	}
	return &claims, nil
}
