// Package repository provides the PostgreSQL implementation of the
// acquisition ports.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/platform/apperr"
)

const (
	firstImpressionNotFoundMsg = "first impression not found"
	folderNotFoundMsg          = "pre-listing folder not found"
	contractNotFoundMsg        = "mediation contract not found"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides database operations for the acquisition workflow.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new acquisition repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ ports.FirstImpressionStore = (*Repository)(nil)
	_ ports.FolderStore          = (*Repository)(nil)
	_ ports.ContractStore        = (*Repository)(nil)
	_ ports.ExtractionLog        = (*Repository)(nil)
)

// mapWriteError turns constraint violations into domain errors.
func mapWriteError(op string, err error, conflictMsg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict(conflictMsg).WithOp(op)
		case pgForeignKeyViolation:
			return apperr.NotFound(firstImpressionNotFoundMsg).WithOp(op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapReadError(op string, err error, notFoundMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(notFoundMsg).WithOp(op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func marshalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return raw, nil
}

func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
