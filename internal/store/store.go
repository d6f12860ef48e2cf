// Package store persists the POS data through sqlx. Queries are written
// with ? placeholders and rebound for the connected driver.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalid           = errors.New("invalid request")
)

// StockError reports the product whose stock could not cover an order.
type StockError struct {
	ProductName string
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s (available: %d)", e.ProductName, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Error is a rejection whose message is meant for the operator. It matches
// its Kind with errors.Is.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Store bundles the repositories over one database handle.
type Store struct {
	db     *sqlx.DB
	secret []byte
	now    func() time.Time
}

// New constructs a Store. secret keys the fingerprints kept for anonymized
// clients.
func New(db *sqlx.DB, secret string) *Store {
	return &Store{db: db, secret: []byte(secret), now: time.Now}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fail(ErrNotFound, format+" not found", args...)
	}
	return errors.Wrapf(err, format, args...)
}
