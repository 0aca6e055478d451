package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const operatorSendTimeout = 10 * time.Second

// Reporter receives every finished tick. Implementations must not block the
// next tick for long.
type Reporter interface {
	Report(ctx context.Context, res TickResult)
}

// LogReporter writes tick outcomes to the log.
type LogReporter struct {
	log *zap.SugaredLogger
}

func NewLogReporter(log *zap.SugaredLogger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) Report(_ context.Context, res TickResult) {
	log := r.log.With("tick", res.ID, "window", res.Window.String())

	if res.Err != nil {
		log.Errorw("tick aborted; nothing was sent", "err", res.Err)
		return
	}
	if res.Due == 0 {
		log.Debug("no due reminders")
		return
	}

	for _, f := range res.Report.Failures {
		log.Warnw("failed delivering reminders", "recipient", f.RecipientID, "err", f.Err)
	}

	log.Infow("tick completed",
		"due", res.Due,
		"recipients", res.Recipients,
		"delivered", res.Report.Delivered,
		"failed", len(res.Report.Failures),
		"skipped", res.Report.Skipped,
	)
}

// OperatorReporter forwards failed ticks to an operator chat after handing
// every tick to next.
type OperatorReporter struct {
	next   Reporter
	sender Sender
	chatID int64
	log    *zap.SugaredLogger
}

func NewOperatorReporter(next Reporter, sender Sender, chatID int64, log *zap.SugaredLogger) *OperatorReporter {
	return &OperatorReporter{next: next, sender: sender, chatID: chatID, log: log}
}

func (r *OperatorReporter) Report(ctx context.Context, res TickResult) {
	if r.next != nil {
		r.next.Report(ctx, res)
	}
	if r.chatID == 0 || !res.Failed() {
		return
	}

	// sent even when the tick's context is already done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), operatorSendTimeout)
	defer cancel()

	if err := r.sender.Send(ctx, r.chatID, Summary(res)); err != nil {
		r.log.Errorw("failed sending tick report to operator", "tick", res.ID, "err", err)
	}
}

// Summary renders a failed tick as plain text for the operator.
func Summary(res TickResult) string {
	var sb strings.Builder

	if res.Err != nil {
		fmt.Fprintf(&sb, "Reminder tick %s aborted (%s): %v", res.ID, res.Window, res.Err)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Reminder tick %s (%s): %d of %d deliveries failed",
		res.ID, res.Window, len(res.Report.Failures), res.Report.Attempted)
	for _, f := range res.Report.Failures {
		fmt.Fprintf(&sb, "\n- %d: %v", f.RecipientID, f.Err)
	}
	if res.Report.Skipped > 0 {
		fmt.Fprintf(&sb, "\n%d not attempted before the tick was cancelled", res.Report.Skipped)
	}
	return sb.String()
}
