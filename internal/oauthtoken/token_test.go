// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package oauthtoken

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	redismock "github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

type memConnector struct{ db *gorm.DB }

func (c *memConnector) DB(ctx context.Context) *gorm.DB { return c.db.WithContext(ctx) }
func (c *memConnector) Close() error                     { return nil }

func TestStore_Get_CacheHitSkipsDB(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Token{}))

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)

	redisClient, mock := redismock.NewClientMock()
	s := NewStore(&memConnector{db: db}, redisClient, logger)

	cached := Token{Provider: "crm", AccessToken: "cached-token", ExpiresAt: time.Now().Add(time.Hour)}
	encoded, err := json.Marshal(cached)
	require.NoError(t, err)

	mock.ExpectGet("oauth_token:crm").SetVal(string(encoded))

	got, err := s.Get(context.Background(), "crm")
	require.NoError(t, err)
	require.Equal(t, "cached-token", got.AccessToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_CacheMissFallsBackToDBAndBackfills(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Token{}))
	require.NoError(t, db.Create(&Token{Provider: "crm", AccessToken: "db-token", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)

	redisClient, mock := redismock.NewClientMock()
	s := NewStore(&memConnector{db: db}, redisClient, logger)

	mock.ExpectGet("oauth_token:crm").RedisNil()
	mock.Regexp().ExpectSet("oauth_token:crm", `.*db-token.*`, cacheTTL).SetVal("OK")

	got, err := s.Get(context.Background(), "crm")
	require.NoError(t, err)
	require.Equal(t, "db-token", got.AccessToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToken_IsExpired(t *testing.T) {
	expired := Token{ExpiresAt: time.Now().Add(-time.Minute)}
	require.True(t, expired.IsExpired())

	valid := Token{ExpiresAt: time.Now().Add(time.Minute)}
	require.False(t, valid.IsExpired())
}
