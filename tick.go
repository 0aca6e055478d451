package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathakanu/remindbot/internal/engine"
	"github.com/pathakanu/remindbot/internal/model"
)

func newTickCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one reminder tick now and print what it did",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(cmd.Context(), cmd.OutOrStdout(), date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "pretend today is this date (YYYY-MM-DD)")
	return cmd
}

func runTick(ctx context.Context, out io.Writer, date string) error {
	cfg, logger, flush, err := loadConfig()
	defer flush()
	if err != nil {
		logger.Errorw("invalid configuration", "err", err)
		return err
	}

	now, err := tickTime(date, cfg.LocalTimezone, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		logger.Errorw("startup failed", "err", err)
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	res := a.bot.TickAt(ctx, now)
	fmt.Fprintln(out, describeTick(res))
	if res.Failed() {
		return fmt.Errorf("tick %s failed", res.ID)
	}
	return nil
}

// tickTime resolves --date in loc, falling back to now.
func tickTime(date string, loc *time.Location, now time.Time) (time.Time, error) {
	if date == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func describeTick(res engine.TickResult) string {
	switch {
	case res.Skipped:
		return fmt.Sprintf("tick %s skipped: another tick is running", res.ID)
	case res.Failed():
		return engine.Summary(res)
	default:
		return fmt.Sprintf("tick %s (%s): %d due, %d of %d deliveries sent",
			res.ID, res.Window, res.Due, res.Report.Delivered, res.Report.Attempted)
	}
}
