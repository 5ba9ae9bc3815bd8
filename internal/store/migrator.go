// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package store owns the embedded sqlite schema migrations. Schema changes
// are additive only (spec.md §9 design note carried into SPEC_FULL.md §9):
// nothing here ever drops a column in an up migration.
package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rapidaai/outbound-dialer/internal/commons"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending up migration against the sqlite file at
// dbPath. It is safe to call on every process start — golang-migrate
// no-ops when the schema is already current.
func Migrate(dbPath string, logger commons.Logger) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, "sqlite3://"+dbPath)
	if err != nil {
		return fmt.Errorf("build migrator for %s: %w", dbPath, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations to %s: %w", dbPath, err)
	}

	logger.Infof("schema migrations applied for %s", dbPath)
	return nil
}
