package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestNewBaseKeepsConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base to hold the provided connection")
	}
	if got := base.DB(nil); got != db {
		t.Fatalf("expected nil context to return the raw connection")
	}
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	bound := base.DB(ctx)

	if bound == nil || bound.Statement == nil {
		t.Fatalf("expected context-bound handle with a statement")
	}
	if bound.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", bound.Statement.Context)
	}
}
