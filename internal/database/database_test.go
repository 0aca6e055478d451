package database

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pathakanu/remindbot/internal/model"
)

func TestNewSQLiteMigrates(t *testing.T) {
	t.Parallel()

	path := fmt.Sprintf("file:db_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := New(Options{Driver: "sqlite", SQLitePath: path}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !db.Migrator().HasTable(&model.Reminder{}) {
		t.Fatalf("reminders table missing after New")
	}
	if !db.Migrator().HasIndex(&model.Reminder{}, "idx_recipient_date") {
		t.Fatalf("recipient/date index missing")
	}

	// migrating twice is a no-op
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
