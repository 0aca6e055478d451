package engine

import (
	"context"

	"github.com/pathakanu/remindbot/internal/model"
	"github.com/pathakanu/remindbot/internal/window"
)

// DueFinder is the read side of the reminder store used on each tick.
type DueFinder interface {
	RemindersInWindow(ctx context.Context, w window.Window) ([]model.Reminder, error)
}

// Selector fetches due reminders and keeps the store's ordering.
type Selector struct {
	finder DueFinder
}

func NewSelector(finder DueFinder) Selector {
	return Selector{finder: finder}
}

// Select returns the reminders in w. A failed query comes back as a
// *StoreQueryError; an empty result is not an error.
func (s Selector) Select(ctx context.Context, w window.Window) ([]model.Reminder, error) {
	reminders, err := s.finder.RemindersInWindow(ctx, w)
	if err != nil {
		return nil, &StoreQueryError{Window: w, Err: err}
	}
	return reminders, nil
}
