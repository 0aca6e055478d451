// Package window computes the range of reminder dates that count as due on a tick.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/remindbot/internal/model"
)

// Kind selects how reminder dates are compared against the window.
type Kind int

const (
	// Annual compares month and day only, so reminders recur every year and
	// the window wraps from December into January.
	Annual Kind = iota
	// Absolute compares full calendar dates. A reminder from a past year never
	// matches again.
	Absolute
)

const monthDayLayout = "01-02"

// MaxAnnualLookahead keeps an annual window from covering its own start
// month-day twice.
const MaxAnnualLookahead = 364

func (k Kind) String() string {
	switch k {
	case Annual:
		return "annual"
	case Absolute:
		return "absolute"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParsePolicy maps a configuration name to a Kind.
func ParsePolicy(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "annual", "":
		return Annual, nil
	case "absolute":
		return Absolute, nil
	default:
		return Annual, fmt.Errorf("window: unknown policy %q", name)
	}
}

// Policy fixes the comparison kind and the span of days around today.
// LookbehindDays is used by Absolute only.
type Policy struct {
	Kind           Kind
	LookaheadDays  int
	LookbehindDays int
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
	Kind  Kind
}

// Calculate returns the due window for the instant now. Dates are taken in
// now's location.
func Calculate(now time.Time, p Policy) Window {
	ahead := max(p.LookaheadDays, 0)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch p.Kind {
	case Absolute:
		behind := max(p.LookbehindDays, 0)
		return Window{
			Start: today.AddDate(0, 0, -behind),
			End:   today.AddDate(0, 0, ahead),
			Kind:  Absolute,
		}
	default:
		ahead = min(ahead, MaxAnnualLookahead)
		return Window{
			Start: today,
			End:   today.AddDate(0, 0, ahead),
			Kind:  Annual,
		}
	}
}

// StartDate returns the first day in YYYY-MM-DD form.
func (w Window) StartDate() string { return w.Start.Format(model.DateLayout) }

// EndDate returns the last day in YYYY-MM-DD form.
func (w Window) EndDate() string { return w.End.Format(model.DateLayout) }

// StartMonthDay returns the first day in MM-DD form.
func (w Window) StartMonthDay() string { return w.Start.Format(monthDayLayout) }

// EndMonthDay returns the last day in MM-DD form.
func (w Window) EndMonthDay() string { return w.End.Format(monthDayLayout) }

// Wraps reports whether an annual window crosses the year boundary, in which
// case the month-day range is split into [start, 12-31] and [01-01, end].
func (w Window) Wraps() bool {
	return w.Kind == Annual && w.EndMonthDay() < w.StartMonthDay()
}

// Contains reports whether a YYYY-MM-DD date is due under this window.
// Malformed dates are never due.
func (w Window) Contains(date string) bool {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return false
	}

	if w.Kind == Absolute {
		return w.StartDate() <= date && date <= w.EndDate()
	}

	md := date[5:]
	start, end := w.StartMonthDay(), w.EndMonthDay()
	if w.Wraps() {
		return md >= start || md <= end
	}
	return start <= md && md <= end
}

func (w Window) String() string {
	if w.Kind == Annual {
		return fmt.Sprintf("%s %s..%s", w.Kind, w.StartMonthDay(), w.EndMonthDay())
	}
	return fmt.Sprintf("%s %s..%s", w.Kind, w.StartDate(), w.EndDate())
}
