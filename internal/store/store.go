// Package store persists time entries, active timers, attendance records and
// targets, and reads the workspace directory owned by other services.
package store

import (
	"context"

	"gorm.io/gorm"
)

// Store wraps a gorm connection, or a transaction when handed out by
// Transaction.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a Store bound to a single database transaction.
// Any error returned by fn rolls the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}
