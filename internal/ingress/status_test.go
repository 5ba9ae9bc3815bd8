// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package ingress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidaai/outbound-dialer/internal/callstate"
	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
	"github.com/rapidaai/outbound-dialer/internal/retry"
)

// timeNowPlusYear gives SelectEligible a horizon comfortably past any
// next-occurrence-of-hour retry the ladder might schedule, so assertions
// don't depend on which ladder step a given attempt index lands on.
func timeNowPlusYear() time.Time {
	return time.Now().AddDate(1, 0, 0)
}

type memConnector struct{ db *gorm.DB }

func (c *memConnector) DB(ctx context.Context) *gorm.DB { return c.db.WithContext(ctx) }
func (c *memConnector) Close() error                     { return nil }

type fakeCarrier struct {
	ended    []string
	released []string
}

func (f *fakeCarrier) EndCall(ctx context.Context, carrierCallID string) error {
	f.ended = append(f.ended, carrierCallID)
	return nil
}

func (f *fakeCarrier) Release(carrierCallID string) {
	f.released = append(f.released, carrierCallID)
}

type fakeNotifier struct{ kinds []string }

func (f *fakeNotifier) Notify(ctx context.Context, kind, contactID string, detail map[string]interface{}) {
	f.kinds = append(f.kinds, kind)
}

func newTestHandler(t *testing.T, carrier EndCaller, notifier Notifier, maxAttempts int) (*Handler, callstate.Registry, queueing.Store) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&callstate.CallState{}, &queueing.QueueEntry{}))

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)

	conn := &memConnector{db: db}
	callStates := callstate.NewRegistry(conn, logger)
	queue := queueing.NewStore(conn, logger)
	retryPolicy := retry.NewPolicy("Europe/Rome")

	h := New(callStates, queue, carrier, retryPolicy, maxAttempts, notifier, logger)
	return h, callStates, queue
}

func TestHandle_ProgressStatusNoAction(t *testing.T) {
	h, callStates, queue := newTestHandler(t, &fakeCarrier{}, nil, 10)
	ctx := context.Background()
	require.NoError(t, callStates.Put(ctx, &callstate.CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "ringing"})

	entries, err := queue.SelectEligible(ctx, timeNowPlusYear(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHandle_RetryableTerminalSchedulesRetry(t *testing.T) {
	h, callStates, queue := newTestHandler(t, &fakeCarrier{}, nil, 10)
	ctx := context.Background()
	require.NoError(t, callStates.Put(ctx, &callstate.CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "no-answer"})

	entries, err := queue.SelectEligible(ctx, timeNowPlusYear(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, entries[0].AttemptIndex)
}

func TestHandle_RetryableTerminalReleasesCarrierBookkeeping(t *testing.T) {
	carrier := &fakeCarrier{}
	h, callStates, _ := newTestHandler(t, carrier, nil, 10)
	ctx := context.Background()
	require.NoError(t, callStates.Put(ctx, &callstate.CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "busy"})

	require.Equal(t, []string{"CA1"}, carrier.released)
}

func TestHandle_MachineDetectedMidCall_EndsCallAndRetries(t *testing.T) {
	carrier := &fakeCarrier{}
	h, callStates, queue := newTestHandler(t, carrier, nil, 10)
	ctx := context.Background()
	require.NoError(t, callStates.Put(ctx, &callstate.CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "in-progress", AnsweredBy: "machine_start"})

	require.Equal(t, []string{"CA1"}, carrier.ended)
	entries, err := queue.SelectEligible(ctx, timeNowPlusYear(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestHandle_CompletedWithHuman_NotifiesAndMarksCompleted(t *testing.T) {
	notifier := &fakeNotifier{}
	h, callStates, _ := newTestHandler(t, &fakeCarrier{}, notifier, 10)
	ctx := context.Background()
	require.NoError(t, callStates.Put(ctx, &callstate.CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "completed"})

	require.Equal(t, []string{"call_completed"}, notifier.kinds)
	state, err := callStates.Get(ctx, "CA1")
	require.NoError(t, err)
	require.Equal(t, callstate.StatusCompleted, state.Status)
}

func TestHandle_DuplicateEventAfterLatchIsDropped(t *testing.T) {
	h, callStates, queue := newTestHandler(t, &fakeCarrier{}, nil, 10)
	ctx := context.Background()
	require.NoError(t, callStates.Put(ctx, &callstate.CallState{CarrierCallID: "CA1", ContactID: "c1", Phone: "+1"}))

	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "no-answer"})
	h.Handle(ctx, StatusEvent{CarrierCallID: "CA1", Status: "busy"})

	entries, err := queue.SelectEligible(ctx, timeNowPlusYear(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the second event must not enqueue a second retry")
}

func TestHandle_UnknownCallStateIsDropped(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeCarrier{}, nil, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	// Should return without panicking even though the lookup can never
	// succeed (ctx already expired bounds the bounded-retry Get immediately).
	h.Handle(ctx, StatusEvent{CarrierCallID: "missing", Status: "completed"})
}
