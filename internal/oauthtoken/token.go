// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package oauthtoken implements the read interface of spec.md §3.3: the core
// only reads valid tokens, refreshed by a single-writer routine external to
// the retry/scheduling path. Tokens are cached in Redis (read-through over
// the sqlite system-of-record) so every CRM call doesn't hit the embedded
// store.
package oauthtoken

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/connectors"
)

const cacheKeyPrefix = "oauth_token:"
const cacheTTL = 30 * time.Second

// Token is the record of spec.md §3.3.
type Token struct {
	Provider     string    `gorm:"column:provider;primaryKey;type:varchar(64)"`
	AccessToken  string    `gorm:"column:access_token;type:text;not null"`
	RefreshToken string    `gorm:"column:refresh_token;type:text"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (Token) TableName() string { return "oauth_tokens" }

// IsExpired reports whether the token is no longer usable.
func (t Token) IsExpired() bool { return time.Now().After(t.ExpiresAt) }

// Store is the read-mostly surface the core depends on. Put is only called
// by the external refresh routine (not exercised by the retry/scheduling
// path at all).
type Store interface {
	Get(ctx context.Context, provider string) (Token, error)
	Put(ctx context.Context, t Token) error
}

type store struct {
	db     connectors.SqliteConnector
	redis  redis.Cmdable
	logger commons.Logger
}

// NewStore builds a Redis-cached Store backed by the embedded sqlite table.
func NewStore(db connectors.SqliteConnector, redisClient redis.Cmdable, logger commons.Logger) Store {
	return &store{db: db, redis: redisClient, logger: logger}
}

func (s *store) Get(ctx context.Context, provider string) (Token, error) {
	key := cacheKeyPrefix + provider

	cached, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		var t Token
		if unmarshalErr := json.Unmarshal([]byte(cached), &t); unmarshalErr == nil {
			return t, nil
		}
	} else if err != redis.Nil {
		s.logger.Warnw("oauth token cache read failed, falling back to store", "provider", provider, "error", err.Error())
	}

	var t Token
	if err := s.db.DB(ctx).Where("provider = ?", provider).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Token{}, fmt.Errorf("oauth token for provider %q not found", provider)
		}
		return Token{}, fmt.Errorf("oauth token lookup for provider %q: %w", provider, err)
	}

	if encoded, marshalErr := json.Marshal(t); marshalErr == nil {
		if err := s.redis.Set(ctx, key, encoded, cacheTTL).Err(); err != nil {
			s.logger.Debugf("oauth token cache write failed for %q: %v", provider, err)
		}
	}

	return t, nil
}

func (s *store) Put(ctx context.Context, t Token) error {
	t.UpdatedAt = time.Now().UTC()
	if err := s.db.DB(ctx).Save(&t).Error; err != nil {
		return fmt.Errorf("persist oauth token for provider %q: %w", t.Provider, err)
	}
	_ = s.redis.Del(ctx, cacheKeyPrefix+t.Provider).Err()
	return nil
}

// AttachBearerAuth installs an OnBeforeRequest hook on client that reads the
// named provider's token from store on every request and sets it as the
// Authorization header. A lookup failure logs and lets the request go out
// unauthenticated rather than blocking the caller (spec.md §3.3: token
// refresh is external to this request path).
func AttachBearerAuth(client *resty.Client, store Store, provider string, logger commons.Logger) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		t, err := store.Get(req.Context(), provider)
		if err != nil {
			logger.Warnw("oauth bearer auth: token unavailable, sending request unauthenticated", "provider", provider, "error", err.Error())
			return nil
		}
		req.SetAuthToken(t.AccessToken)
		return nil
	})
}
