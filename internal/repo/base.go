// Package repo holds shared plumbing for GORM-backed repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle that domain repositories embed instead of
// each holding their own connection field.
type Base struct {
	db *gorm.DB
}

// NewBase wraps the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx so query cancellation propagates.
// A nil context yields the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
