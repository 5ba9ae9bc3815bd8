// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package callstate

import (
	"context"
	"errors"
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

func newTestRegistry(t *testing.T) Registry {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&CallState{}))

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)

	return NewRegistry(&memConnector{db: db}, logger)
}

func TestRegistry_GetFindsRowImmediately(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	got, err := r.Get(ctx, "CA1")
	require.NoError(t, err)
	require.Equal(t, "c1", got.ContactID)
}

func TestRegistry_GetMissingRowReturnsError(t *testing.T) {
	r := newTestRegistry(t)
	// Cancel the context well before the ~2s bounded-retry window elapses so
	// this test doesn't actually wait out the full window.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Get(ctx, "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotFound))
}

func TestRegistry_LatchRetryScheduled_OnlyOneWinner(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	first, err := r.LatchRetryScheduled(ctx, "CA1")
	require.NoError(t, err)
	require.True(t, first)

	second, err := r.LatchRetryScheduled(ctx, "CA1")
	require.NoError(t, err)
	require.False(t, second)
}

func TestRegistry_Update_UnknownRowErrors(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	err := r.Update(ctx, "missing", map[string]interface{}{"status": StatusRinging})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestCallState_IsTerminal(t *testing.T) {
	c := &CallState{Status: StatusAnswered}
	require.False(t, c.IsTerminal())
	c.Status = StatusCompleted
	require.True(t, c.IsTerminal())
	c.Status = StatusFailed
	require.True(t, c.IsTerminal())
}
