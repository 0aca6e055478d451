// Package engine runs the periodic reminder tick: it computes the due window,
// selects due reminders, folds them into one notification per recipient and
// dispatches the notifications.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathakanu/remindbot/internal/window"
)

// TickResult describes what a single tick did.
type TickResult struct {
	ID         string
	Now        time.Time
	Window     window.Window
	Due        int
	Recipients int
	Report     Report
	// Err is set when the tick aborted before dispatch.
	Err error
	// Skipped is set when another tick was still running.
	Skipped bool
}

// Failed reports whether anything went wrong, including single delivery
// failures and sends cut off by cancellation.
func (r TickResult) Failed() bool {
	return r.Err != nil || len(r.Report.Failures) > 0 || r.Report.Skipped > 0
}

func (r TickResult) outcome() string {
	switch {
	case r.Skipped:
		return outcomeSkipped
	case r.Err != nil:
		return outcomeFailed
	case len(r.Report.Failures) > 0 || r.Report.Skipped > 0:
		return outcomePartial
	case r.Due == 0:
		return outcomeEmpty
	default:
		return outcomeOK
	}
}

// Options tune an Engine. Zero values fall back to the annual +1 day policy,
// the default label and sequential sends.
type Options struct {
	Policy      window.Policy
	Label       string
	Concurrency int
	Reporter    Reporter
	Metrics     *Metrics
}

// Engine owns the tick pipeline. It keeps no state between ticks.
type Engine struct {
	selector   Selector
	dispatcher *Dispatcher
	formatter  Formatter
	policy     window.Policy
	reporter   Reporter
	metrics    *Metrics
	log        *zap.SugaredLogger

	running sync.Mutex
}

func New(finder DueFinder, sender Sender, log *zap.SugaredLogger, opts Options) *Engine {
	policy := opts.Policy
	if policy == (window.Policy{}) {
		policy = window.Policy{Kind: window.Annual, LookaheadDays: 1}
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NewLogReporter(log)
	}

	return &Engine{
		selector:   NewSelector(finder),
		dispatcher: NewDispatcher(sender, opts.Concurrency),
		formatter:  Formatter{Label: opts.Label},
		policy:     policy,
		reporter:   reporter,
		metrics:    opts.Metrics,
		log:        log,
	}
}

// Policy returns the window policy the engine was built with.
func (e *Engine) Policy() window.Policy {
	return e.policy
}

// Tick runs one reminder cycle for the instant now. Failures end up in the
// result and in the reporter; Tick itself never panics. Ticks don't overlap:
// a call made while another tick runs returns at once with Skipped set.
func (e *Engine) Tick(ctx context.Context, now time.Time) (res TickResult) {
	res = TickResult{ID: uuid.NewString(), Now: now}
	log := e.log.With("tick", res.ID)

	if !e.running.TryLock() {
		res.Skipped = true
		log.Warn("previous tick is still running; skipping")
		e.metrics.observe(res, 0)
		return res
	}
	defer e.running.Unlock()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("tick panicked: %v", p)
		}
		e.metrics.observe(res, time.Since(start))
		e.reporter.Report(ctx, res)
	}()

	res.Window = window.Calculate(now, e.policy)
	log.Debugw("tick started", "window", res.Window.String())

	due, err := e.selector.Select(ctx, res.Window)
	if err != nil {
		res.Err = err
		return res
	}
	res.Due = len(due)
	if res.Due == 0 {
		return res
	}

	notifications := Aggregate(due, e.formatter)
	res.Recipients = len(notifications)
	res.Report = e.dispatcher.Dispatch(ctx, notifications)
	return res
}
