// Package store persists reminders and answers the range queries the
// dispatch engine runs on every tick.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pathakanu/remindbot/internal/model"
	"github.com/pathakanu/remindbot/internal/window"
)

var (
	// ErrInvalidDate is returned when a date isn't a real YYYY-MM-DD calendar day.
	ErrInvalidDate = errors.New("date must be a valid YYYY-MM-DD day")
	// ErrEmptyDescription is returned for blank reminder text.
	ErrEmptyDescription = errors.New("description can't be empty")
)

// monthDay extracts MM-DD from a YYYY-MM-DD column. substr is available with
// the same semantics on postgres, mysql and sqlite.
const monthDay = "substr(date, 6, 5)"

// Store is a gorm-backed reminder table.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RemindersInWindow returns every reminder due under w in insertion order.
func (s *Store) RemindersInWindow(ctx context.Context, w window.Window) ([]model.Reminder, error) {
	q := s.db.WithContext(ctx).Model(&model.Reminder{})

	switch {
	case w.Kind == window.Absolute:
		q = q.Where("date BETWEEN ? AND ?", w.StartDate(), w.EndDate())
	case w.Wraps():
		q = q.Where(monthDay+" >= ? OR "+monthDay+" <= ?", w.StartMonthDay(), w.EndMonthDay())
	default:
		q = q.Where(monthDay+" BETWEEN ? AND ?", w.StartMonthDay(), w.EndMonthDay())
	}

	var reminders []model.Reminder
	if err := q.Order("id ASC").Find(&reminders).Error; err != nil {
		return nil, errors.Wrapf(err, "failed selecting reminders in %s", w)
	}
	return reminders, nil
}

// RemindersForRecipient lists a recipient's reminders by date.
func (s *Store) RemindersForRecipient(ctx context.Context, recipientID int64) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("date ASC, id ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed listing reminders")
	}
	return reminders, nil
}

// Insert validates and stores a new reminder.
func (s *Store) Insert(ctx context.Context, recipientID int64, date, description string) (*model.Reminder, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	r := &model.Reminder{
		RecipientID: recipientID,
		Date:        date,
		Description: description,
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, errors.Wrap(err, "failed to add reminder")
	}
	return r, nil
}

// DeleteByDate removes every reminder the recipient has on date and reports
// how many rows went away.
func (s *Store) DeleteByDate(ctx context.Context, recipientID int64, date string) (int64, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return 0, ErrInvalidDate
	}

	res := s.db.WithContext(ctx).
		Where("recipient_id = ? AND date = ?", recipientID, date).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed deleting reminders by date")
	}
	return res.RowsAffected, nil
}

// DeleteAll removes all of the recipient's reminders.
func (s *Store) DeleteAll(ctx context.Context, recipientID int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed deleting reminders")
	}
	return res.RowsAffected, nil
}
