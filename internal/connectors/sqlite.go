// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package connectors owns the single shared database connection pool for
// the process. The teacher platform opens per-request handles; this
// orchestrator is a single process with a single embedded store, so the
// pool's lifetime matches the process lifetime (spec.md §9 design note).
package connectors

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

// SqliteConnector owns the *gorm.DB backing the embedded store.
type SqliteConnector interface {
	DB(ctx context.Context) *gorm.DB
	Close() error
}

type sqliteConnector struct {
	db *gorm.DB
}

// NewSqliteConnector opens (and pings) the embedded sqlite file at path.
func NewSqliteConnector(path string, logger commons.Logger) (SqliteConnector, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain sql.DB handle: %w", err)
	}
	// A single embedded file is single-writer by nature; keep the pool
	// small and let sqlite's own locking serialize writers.
	sqlDB.SetMaxOpenConns(8)

	logger.Infof("embedded store opened at %s", path)
	return &sqliteConnector{db: db}, nil
}

func (c *sqliteConnector) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

func (c *sqliteConnector) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
