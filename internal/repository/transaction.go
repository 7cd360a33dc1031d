package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Tx groups the repositories that share one transaction.
type Tx struct {
	Users    UserRepository
	Sessions SessionRepository
}

// Transactor runs fn so that every write made through tx commits or rolls back together.
// An error returned by fn rolls back and is returned unchanged.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type gormTransactor struct {
	gormStore
}

// NewTransactor builds a Transactor over db. Statements inside the transaction keep the per-statement timeout.
func NewTransactor(db *gorm.DB, timeout time.Duration) Transactor {
	return &gormTransactor{gormStore{db: db, timeout: timeout}}
}

// WithTransaction executes fn within a database transaction.
func (t *gormTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var fnErr error
	err := t.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		store := gormStore{db: db, timeout: t.timeout}
		fnErr = fn(ctx, Tx{Users: &userRepository{store}, Sessions: &sessionRepository{store}})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	// begin or commit failed
	return persistence("transaction", err)
}
