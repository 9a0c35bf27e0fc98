package repository

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDBNotReady = errors.New("database not initialized")

// ReadCommitted is the isolation every read-check-write transaction runs at. Each statement
// sees rows committed before it started, so pledge sums read after an inventory row lock
// include pledges committed while that lock was awaited.
var ReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// Transactor runs fn inside a database transaction. Repositories rebound with WithTx(tx)
// inside fn see the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.db == nil {
		return ErrDBNotReady
	}
	return t.db.WithContext(ctx).Transaction(fn, ReadCommitted)
}

// forUpdate locks the selected rows until the surrounding transaction ends.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// priceScope matches an optional purchase price; a nil price matches NULL only.
func priceScope(column string, price *int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if price == nil {
			return db.Where(column + " IS NULL")
		}
		return db.Where(column+" = ?", *price)
	}
}
