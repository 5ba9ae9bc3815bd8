// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package queueing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

type memConnector struct{ db *gorm.DB }

func (c *memConnector) DB(ctx context.Context) *gorm.DB { return c.db.WithContext(ctx) }
func (c *memConnector) Close() error                     { return nil }

func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&QueueEntry{}))

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)

	return NewStore(&memConnector{db: db}, logger)
}

func TestStore_ClaimIsAtMostOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &QueueEntry{ContactID: "c1", Phone: "+15551234567"}
	require.NoError(t, s.Insert(ctx, entry))

	now := time.Now()
	first, err := s.Claim(ctx, entry.ID, now)
	require.NoError(t, err)
	require.True(t, first)

	second, err := s.Claim(ctx, entry.ID, now)
	require.NoError(t, err)
	require.False(t, second)
}

func TestStore_SelectEligible_SkipsEntriesNotYetDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	late := &QueueEntry{ContactID: "c-late", Phone: "+1", ScheduledAt: now.Add(time.Minute)}
	early := &QueueEntry{ContactID: "c-early", Phone: "+1", ScheduledAt: now.Add(-time.Minute)}
	require.NoError(t, s.Insert(ctx, late))
	require.NoError(t, s.Insert(ctx, early))

	entries, err := s.SelectEligible(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "c-early", entries[0].ContactID)
}

func TestStore_ReclaimStaleInFlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &QueueEntry{ContactID: "c1", Phone: "+1"}
	require.NoError(t, s.Insert(ctx, entry))

	stale := time.Now().Add(-time.Hour)
	claimed, err := s.Claim(ctx, entry.ID, stale)
	require.NoError(t, err)
	require.True(t, claimed)

	reclaimed, err := s.ReclaimStaleInFlight(ctx, 5*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), reclaimed)

	entries, err := s.SelectEligible(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, StatusPending, entries[0].Status)
}

func TestStore_MarkFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &QueueEntry{ContactID: "c1", Phone: "+1"}
	require.NoError(t, s.Insert(ctx, entry))
	require.NoError(t, s.MarkFailed(ctx, entry.ID, "carrier unreachable"))

	entries, err := s.SelectEligible(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}
