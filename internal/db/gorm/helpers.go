// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/pkg/models"
)

// postgres SQLSTATE for insufficient_privilege.
const pgInsufficientPrivilege = "42501"

// forUser scopes a query to rows owned by uid.
func forUser(uid string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", uid)
	}
}

// newestFirst orders by timestamp descending with the id as a stable tiebreak.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("timestamp_epoch DESC").Order("id DESC")
}

// requireIdentity rejects calls made without a signed-in user.
func requireIdentity(op string, id *models.Identity) error {
	if id == nil || id.UID == "" {
		return ledger.Unavailable(op, ledger.ErrNoIdentity)
	}
	return nil
}

// mapError classifies a database error into the ledger taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *ledger.StoreError
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ledger.StoreError{Op: op, Kind: ledger.KindNotFound, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return ledger.PermissionDenied(op, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			return ledger.PermissionDenied(op, err)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ledger.Unavailable(op, err)
	}

	if strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return ledger.PermissionDenied(op, err)
	}

	return ledger.Unavailable(op, err)
}
