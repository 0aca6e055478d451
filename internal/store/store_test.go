package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathakanu/remindbot/internal/model"
	"github.com/pathakanu/remindbot/internal/window"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := db.AutoMigrate(&model.Reminder{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return New(db)
}

type seed struct {
	recipient   int64
	date        string
	description string
}

func seedReminders(t *testing.T, s *Store, rows []seed) {
	t.Helper()
	for i, r := range rows {
		if _, err := s.Insert(context.Background(), r.recipient, r.date, r.description); err != nil {
			t.Fatalf("seed reminder %d: %v", i, err)
		}
	}
}

func descriptions(reminders []model.Reminder) []string {
	out := make([]string, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, r.Description)
	}
	return out
}

func at(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		t.Fatalf("parse %q: %v", date, err)
	}
	return d.Add(9 * time.Hour)
}

func TestInsertValidates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, 1, "2024-13-01", "bad month"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := s.Insert(ctx, 1, "2023-02-29", "not a leap year"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for 2023-02-29, got %v", err)
	}
	if _, err := s.Insert(ctx, 1, "2024-03-01", "   "); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}

	r, err := s.Insert(ctx, 1, "2024-03-01", "  pay rent ")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if r.ID == 0 || r.Description != "pay rent" {
		t.Fatalf("unexpected stored reminder %+v", r)
	}
}

func TestRemindersInWindowAnnual(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seedReminders(t, s, []seed{
		{1, "2024-03-02", "call mom"},
		{2, "1990-03-01", "birthday"},
		{1, "2024-03-01", "pay rent"},
		{3, "2024-03-03", "too late"},
		{3, "2024-02-29", "too early"},
	})

	w := window.Calculate(at(t, "2025-03-01"), window.Policy{Kind: window.Annual, LookaheadDays: 1})
	got, err := s.RemindersInWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("RemindersInWindow: %v", err)
	}

	want := []string{"call mom", "birthday", "pay rent"}
	if !reflect.DeepEqual(descriptions(got), want) {
		t.Fatalf("got %v, want %v in insertion order", descriptions(got), want)
	}
}

func TestRemindersInWindowYearWrap(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seedReminders(t, s, []seed{
		{1, "2023-12-31", "new year's eve"},
		{1, "2020-01-01", "new year"},
		{1, "2024-01-02", "after"},
		{1, "2024-12-30", "before"},
		{1, "2024-06-15", "summer"},
	})

	w := window.Calculate(at(t, "2024-12-31"), window.Policy{Kind: window.Annual, LookaheadDays: 1})
	got, err := s.RemindersInWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("RemindersInWindow: %v", err)
	}

	want := []string{"new year's eve", "new year"}
	if !reflect.DeepEqual(descriptions(got), want) {
		t.Fatalf("got %v, want %v", descriptions(got), want)
	}
	for _, r := range got {
		if !w.Contains(r.Date) {
			t.Fatalf("store returned %s which the window does not contain", r.Date)
		}
	}
}

func TestRemindersInWindowLeapDay(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seedReminders(t, s, []seed{
		{1, "2024-02-29", "leap"},
		{1, "2024-03-01", "march"},
	})

	w := window.Calculate(at(t, "2024-02-28"), window.Policy{Kind: window.Annual, LookaheadDays: 1})
	got, err := s.RemindersInWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("RemindersInWindow: %v", err)
	}
	if !reflect.DeepEqual(descriptions(got), []string{"leap"}) {
		t.Fatalf("got %v, want [leap]", descriptions(got))
	}
}

func TestRemindersInWindowAbsolute(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seedReminders(t, s, []seed{
		{1, "2023-12-27", "first day"},
		{1, "2023-03-01", "last year"},
		{1, "2024-01-04", "last day"},
		{1, "2024-01-05", "outside"},
		{1, "2025-01-03", "next year"},
	})

	w := window.Calculate(at(t, "2024-01-03"), window.Policy{Kind: window.Absolute, LookaheadDays: 1, LookbehindDays: 7})
	got, err := s.RemindersInWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("RemindersInWindow: %v", err)
	}
	if !reflect.DeepEqual(descriptions(got), []string{"first day", "last day"}) {
		t.Fatalf("got %v", descriptions(got))
	}
}

func TestRemindersInWindowIsRepeatable(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seedReminders(t, s, []seed{
		{2, "2024-03-01", "b"},
		{1, "2024-03-01", "a"},
		{1, "2024-03-02", "c"},
	})

	w := window.Calculate(at(t, "2024-03-01"), window.Policy{Kind: window.Annual, LookaheadDays: 1})
	first, err := s.RemindersInWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := s.RemindersInWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reads differ:\n%+v\n%+v", first, second)
	}
}

func TestRemindersForRecipientSortedByDate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seedReminders(t, s, []seed{
		{1, "2024-05-01", "may"},
		{2, "2024-01-01", "other user"},
		{1, "2024-02-01", "february"},
	})

	got, err := s.RemindersForRecipient(context.Background(), 1)
	if err != nil {
		t.Fatalf("RemindersForRecipient: %v", err)
	}
	if !reflect.DeepEqual(descriptions(got), []string{"february", "may"}) {
		t.Fatalf("got %v", descriptions(got))
	}
}

func TestDeleteByDateRemovesAllSameDateRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	seedReminders(t, s, []seed{
		{1, "2024-03-01", "pay rent"},
		{1, "2024-03-01", "water plants"},
		{1, "2024-03-02", "call mom"},
		{2, "2024-03-01", "someone else"},
	})

	n, err := s.DeleteByDate(ctx, 1, "2024-03-01")
	if err != nil {
		t.Fatalf("DeleteByDate: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteByDate removed %d rows, want 2", n)
	}

	left, err := s.RemindersForRecipient(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(descriptions(left), []string{"call mom"}) {
		t.Fatalf("left %v", descriptions(left))
	}

	other, _ := s.RemindersForRecipient(ctx, 2)
	if len(other) != 1 {
		t.Fatalf("delete leaked into another recipient: %v", descriptions(other))
	}

	if _, err := s.DeleteByDate(ctx, 1, "yesterday"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	seedReminders(t, s, []seed{
		{1, "2024-03-01", "a"},
		{1, "2024-04-01", "b"},
		{2, "2024-03-01", "c"},
	})

	n, err := s.DeleteAll(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}
	left, _ := s.RemindersForRecipient(ctx, 1)
	if len(left) != 0 {
		t.Fatalf("expected no reminders left, got %v", descriptions(left))
	}
}
