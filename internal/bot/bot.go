package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmhodges/clock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pathakanu/remindbot/internal/command"
	"github.com/pathakanu/remindbot/internal/config"
	"github.com/pathakanu/remindbot/internal/engine"
	"github.com/pathakanu/remindbot/internal/model"
	myopenai "github.com/pathakanu/remindbot/internal/openai"
	"github.com/pathakanu/remindbot/internal/store"
)

// tickTimeout bounds one scheduled tick. Sends issued before it fires are not rolled back.
const tickTimeout = 5 * time.Minute

const (
	greeting         = "Hi! I keep date reminders for you and message you when they come up."
	noReminders      = "You have no reminders"
	yourReminders    = "Your reminders:\n"
	allDeleted       = "All reminders deleted"
	storeUnavailable = "Sorry, I couldn't reach your reminders right now. Please try again later."
)

// ReminderStore is the read/write side of the reminders table used by chat commands.
type ReminderStore interface {
	RemindersForRecipient(ctx context.Context, recipientID int64) ([]model.Reminder, error)
	Insert(ctx context.Context, recipientID int64, date, description string) (*model.Reminder, error)
	DeleteByDate(ctx context.Context, recipientID int64, date string) (int64, error)
	DeleteAll(ctx context.Context, recipientID int64) (int64, error)
}

// IntentClassifier guesses what free text that isn't a command asks for.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, content string) (myopenai.Intent, error)
}

// Bot coordinates reminder commands and the periodic dispatch tick.
type Bot struct {
	cfg        *config.Config
	store      ReminderStore
	engine     *engine.Engine
	classifier IntentClassifier
	clock      clock.Clock
	cron       *cron.Cron
	logger     *zap.SugaredLogger
}

// New creates a fully configured Bot instance. classifier may be nil.
func New(cfg *config.Config, st ReminderStore, eng *engine.Engine, classifier IntentClassifier, clk clock.Clock, logger *zap.SugaredLogger) *Bot {
	return &Bot{
		cfg:        cfg,
		store:      st,
		engine:     eng,
		classifier: classifier,
		clock:      clk,
		logger:     logger,
	}
}

// StartScheduler registers the reminder tick and starts the scheduler loop.
// A tick that is still running when the next one fires causes that one to be skipped.
func (b *Bot) StartScheduler() error {
	cl := cronLogger{b.logger}
	b.cron = cron.New(
		cron.WithLocation(b.cfg.LocalTimezone),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := b.cron.AddFunc(b.cfg.CronSchedule, func() {
		b.RunTick(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", b.cfg.CronSchedule, err)
	}
	b.cron.Start()
	b.logger.Infow("scheduler started", "schedule", b.cfg.CronSchedule, "policy", b.engine.Policy().Kind.String())
	return nil
}

// StopScheduler stops the cron scheduler and waits for a running tick.
func (b *Bot) StopScheduler() {
	if b.cron == nil {
		return
	}
	ctx := b.cron.Stop()
	<-ctx.Done()
}

// RunTick runs one reminder tick at the current clock time.
func (b *Bot) RunTick(ctx context.Context) engine.TickResult {
	return b.TickAt(ctx, b.clock.Now())
}

// TickAt runs one reminder tick as if it were now.
func (b *Bot) TickAt(ctx context.Context, now time.Time) engine.TickResult {
	ctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()
	return b.engine.Tick(ctx, now.In(b.cfg.LocalTimezone))
}

// Respond executes a chat message from recipientID and returns the reply text.
func (b *Bot) Respond(ctx context.Context, recipientID int64, text string) string {
	cmd, err := command.Parse(text)
	switch {
	case errors.Is(err, command.ErrFormat):
		return command.Usage(cmd.Kind)
	case errors.Is(err, command.ErrUnknown):
		cmd = b.classify(ctx, text)
	}

	log := b.logger.With("recipient", recipientID)

	switch cmd.Kind {
	case command.Start:
		return greeting + "\n\n" + helpResponse()

	case command.Add:
		if _, err := b.store.Insert(ctx, recipientID, cmd.Date, cmd.Description); err != nil {
			if errors.Is(err, store.ErrInvalidDate) || errors.Is(err, store.ErrEmptyDescription) {
				return command.Usage(command.Add)
			}
			log.Errorw("failed adding reminder", "err", err)
			return storeUnavailable
		}
		return "Added date: " + cmd.Date

	case command.Delete:
		n, err := b.store.DeleteByDate(ctx, recipientID, cmd.Date)
		if err != nil {
			log.Errorw("failed deleting reminders by date", "date", cmd.Date, "err", err)
			return storeUnavailable
		}
		if n == 0 {
			return "No reminders on " + cmd.Date
		}
		return "Reminder deleted: " + cmd.Date

	case command.DeleteAll:
		if _, err := b.store.DeleteAll(ctx, recipientID); err != nil {
			log.Errorw("failed deleting all reminders", "err", err)
			return storeUnavailable
		}
		return allDeleted

	case command.List:
		reminders, err := b.store.RemindersForRecipient(ctx, recipientID)
		if err != nil {
			log.Errorw("failed listing reminders", "err", err)
			return storeUnavailable
		}
		return listReminders(reminders)

	default:
		return helpResponse()
	}
}

// classify asks the optional language model about text the grammar rejected.
func (b *Bot) classify(ctx context.Context, text string) command.Command {
	if b.classifier == nil {
		return command.Command{Kind: command.Help}
	}

	intent, err := b.classifier.ClassifyIntent(ctx, text)
	if err != nil {
		if !errors.Is(err, myopenai.ErrClientNotInitialised) {
			b.logger.Warnw("intent classification error", "err", err)
		}
		return command.Command{Kind: command.Help}
	}

	switch intent {
	case myopenai.IntentList:
		return command.Command{Kind: command.List}
	case myopenai.IntentDeleteAll:
		return command.Command{Kind: command.DeleteAll}
	default:
		return command.Command{Kind: command.Help}
	}
}

// listReminders renders a recipient's reminders as "D/M/YYYY: description" lines.
func listReminders(reminders []model.Reminder) string {
	if len(reminders) == 0 {
		return noReminders
	}

	var sb strings.Builder
	sb.WriteString(yourReminders)
	for _, r := range reminders {
		date := r.Date
		if d, err := time.Parse(model.DateLayout, r.Date); err == nil {
			date = fmt.Sprintf("%d/%d/%d", d.Day(), int(d.Month()), d.Year())
		}
		fmt.Fprintf(&sb, "%s: %s\n", date, r.Description)
	}
	return sb.String()
}

func helpResponse() string {
	return "You can send me:\n" +
		"- add YYYY-MM-DD Description, to save a reminder\n" +
		"- list, to see your reminders\n" +
		"- delete YYYY-MM-DD, to remove every reminder on that date\n" +
		"- deleteall, to remove all of your reminders"
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "err", err)...)
}
