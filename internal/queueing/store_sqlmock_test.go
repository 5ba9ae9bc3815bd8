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

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

// TestStore_Claim_EmitsExactlyTheAtomicUpdate asserts the literal SQL shape
// of the pending->in-flight transition (spec.md §4.4): one UPDATE gated on
// both id and status, so two concurrent claimers can never both succeed.
func TestStore_Claim_EmitsExactlyTheAtomicUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gdb, err := gorm.Open(sqlite.Dialector{Conn: db}, &gorm.Config{})
	require.NoError(t, err)

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	s := NewStore(&memConnector{db: gdb}, logger)

	mock.ExpectExec(`UPDATE .queue_entries. SET .*status.*last_attempt_at.* WHERE id = . AND status = .`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := s.Claim(context.Background(), 1, time.Now())
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Claim_LostRaceReturnsFalse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gdb, err := gorm.Open(sqlite.Dialector{Conn: db}, &gorm.Config{})
	require.NoError(t, err)

	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	s := NewStore(&memConnector{db: gdb}, logger)

	mock.ExpectExec(`UPDATE .queue_entries.`).WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := s.Claim(context.Background(), 1, time.Now())
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}
