// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"cmsmini/internal/apperr"
)

// Postgres SQLSTATE codes the stores classify.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
)

// classify wraps err with op and, for constraint violations, the matching
// taxonomy kind.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s: duplicate value violates %s", apperr.ErrConflictingState, op, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s: still referenced (%s)", apperr.ErrConflictingState, op, pgErr.ConstraintName)
	case pgCheckViolation, pgInvalidText:
		return fmt.Errorf("%w: %s: %s", apperr.ErrInvalidParameter, op, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
