package infra

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hingecraft/internal/domain"
)

// Postgres SQLSTATE codes the store distinguishes.
const (
	pgUniqueViolation    = "23505"
	pgCheckViolation     = "23514"
	pgQueryCanceled      = "57014"
	pgTooManyConnections = "53300"
	pgCannotConnectNow   = "57P03"
)

// IsNoRows reports whether err signals an empty result set.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ClassifyStoreError maps driver errors onto the domain error taxonomy.
// Errors it does not recognise are returned unchanged.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if IsNoRows(err) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return &domain.ConstraintError{Kind: domain.ConstraintUnique, Constraint: pgErr.ConstraintName, Err: err}
		case pgErr.Code == pgCheckViolation:
			return &domain.ConstraintError{Kind: domain.ConstraintCheck, Constraint: pgErr.ConstraintName, Err: err}
		case pgErr.Code == pgQueryCanceled:
			return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
		case pgErr.Code == pgTooManyConnections, pgErr.Code == pgCannotConnectNow, len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
