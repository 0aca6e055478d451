package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathakanu/remindbot/internal/config"
	"github.com/pathakanu/remindbot/internal/engine"
	"github.com/pathakanu/remindbot/internal/model"
	myopenai "github.com/pathakanu/remindbot/internal/openai"
	"github.com/pathakanu/remindbot/internal/store"
	"github.com/pathakanu/remindbot/internal/window"
)

type outbox struct {
	mu   sync.Mutex
	msgs map[int64][]string
}

func (o *outbox) Send(ctx context.Context, recipientID int64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.msgs == nil {
		o.msgs = make(map[int64][]string)
	}
	o.msgs[recipientID] = append(o.msgs[recipientID], text)
	return nil
}

func (o *outbox) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	return o.Send(ctx, chatID, text)
}

func (o *outbox) get(id int64) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msgs[id]
}

type fakeClassifier struct {
	intent myopenai.Intent
	err    error
}

func (f fakeClassifier) ClassifyIntent(ctx context.Context, content string) (myopenai.Intent, error) {
	return f.intent, f.err
}

func newTestBot(t *testing.T, classifier IntentClassifier) (*Bot, *outbox, clock.FakeClock) {
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

	log := zap.NewNop().Sugar()
	st := store.New(db)
	out := &outbox{}
	eng := engine.New(st, out, log, engine.Options{
		Policy: window.Policy{Kind: window.Annual, LookaheadDays: 1},
	})
	clk := clock.NewFake()
	cfg := &config.Config{LocalTimezone: time.UTC, CronSchedule: "0 9 * * *"}

	return New(cfg, st, eng, classifier, clk, log), out, clk
}

func TestRespondAddAndList(t *testing.T) {
	t.Parallel()
	b, _, _ := newTestBot(t, nil)
	ctx := context.Background()

	if got := b.Respond(ctx, 1, "list"); got != noReminders {
		t.Fatalf("empty list = %q", got)
	}
	if got := b.Respond(ctx, 1, "add 2024-03-05 dentist"); got != "Added date: 2024-03-05" {
		t.Fatalf("add reply = %q", got)
	}
	if got := b.Respond(ctx, 1, "/add 2023-12-25 Christmas dinner"); got != "Added date: 2023-12-25" {
		t.Fatalf("add reply = %q", got)
	}
	b.Respond(ctx, 2, "add 2024-01-01 someone else")

	want := "Your reminders:\n25/12/2023: Christmas dinner\n5/3/2024: dentist\n"
	if got := b.Respond(ctx, 1, "list"); got != want {
		t.Fatalf("list = %q, want %q", got, want)
	}
}

func TestRespondMalformed(t *testing.T) {
	t.Parallel()
	b, _, _ := newTestBot(t, nil)
	ctx := context.Background()

	cases := map[string]string{
		"add tomorrow buy milk": "Wrong format. Use 'add YYYY-MM-DD Description'.",
		"add 2024-02-30 nope":   "Wrong format. Use 'add YYYY-MM-DD Description'.",
		"add 2024-03-01":        "Wrong format. Use 'add YYYY-MM-DD Description'.",
		"delete soon":           "Wrong format. Use 'delete YYYY-MM-DD'.",
	}
	for in, want := range cases {
		if got := b.Respond(ctx, 1, in); got != want {
			t.Fatalf("Respond(%q) = %q, want %q", in, got, want)
		}
	}
	if got := b.Respond(ctx, 1, "list"); got != noReminders {
		t.Fatalf("malformed commands must not store anything, list = %q", got)
	}
}

func TestRespondDelete(t *testing.T) {
	t.Parallel()
	b, _, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.Respond(ctx, 1, "add 2024-03-05 dentist")
	b.Respond(ctx, 1, "add 2024-03-05 call mum")
	b.Respond(ctx, 1, "add 2024-04-01 taxes")
	b.Respond(ctx, 2, "add 2024-03-05 not mine")

	if got := b.Respond(ctx, 1, "delete 2024-03-05"); got != "Reminder deleted: 2024-03-05" {
		t.Fatalf("delete reply = %q", got)
	}
	if got := b.Respond(ctx, 1, "delete 2024-03-05"); got != "No reminders on 2024-03-05" {
		t.Fatalf("second delete reply = %q", got)
	}
	if got := b.Respond(ctx, 1, "list"); got != "Your reminders:\n1/4/2024: taxes\n" {
		t.Fatalf("list after delete = %q", got)
	}

	if got := b.Respond(ctx, 1, "deleteall"); got != allDeleted {
		t.Fatalf("deleteall reply = %q", got)
	}
	if got := b.Respond(ctx, 1, "list"); got != noReminders {
		t.Fatalf("list after deleteall = %q", got)
	}
	if got := b.Respond(ctx, 2, "list"); got != "Your reminders:\n5/3/2024: not mine\n" {
		t.Fatalf("other recipient affected: %q", got)
	}
}

func TestRespondFreeText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, _, _ := newTestBot(t, nil)
	if got := b.Respond(ctx, 1, "what can you do?"); got != helpResponse() {
		t.Fatalf("unknown text without classifier = %q", got)
	}
	if got := b.Respond(ctx, 1, "/start"); !strings.HasPrefix(got, greeting) {
		t.Fatalf("start reply = %q", got)
	}

	b, _, _ = newTestBot(t, fakeClassifier{intent: myopenai.IntentList})
	b.Respond(ctx, 1, "add 2024-03-05 dentist")
	if got := b.Respond(ctx, 1, "show me what I saved"); !strings.HasPrefix(got, yourReminders) {
		t.Fatalf("classified list = %q", got)
	}

	b, _, _ = newTestBot(t, fakeClassifier{err: errors.New("quota exceeded")})
	if got := b.Respond(ctx, 1, "show me what I saved"); got != helpResponse() {
		t.Fatalf("classifier error should fall back to help, got %q", got)
	}
}

func TestTickDeliversDueReminders(t *testing.T) {
	t.Parallel()
	b, out, clk := newTestBot(t, nil)
	ctx := context.Background()

	b.Respond(ctx, 7, "add 2019-03-05 dentist")
	b.Respond(ctx, 7, "add 2020-03-06 anniversary")
	b.Respond(ctx, 7, "add 2020-03-08 too far")
	b.Respond(ctx, 8, "add 2021-03-06 passport")

	clk.Set(time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC))
	res := b.RunTick(ctx)
	if res.Failed() || res.Due != 3 || res.Recipients != 2 {
		t.Fatalf("unexpected tick result: %+v", res)
	}

	got := out.get(7)
	want := "Reminder: 2019-03-05 dentist\n\nReminder: 2020-03-06 anniversary"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("recipient 7 got %q, want one message %q", got, want)
	}
	if got := out.get(8); len(got) != 1 || got[0] != "Reminder: 2021-03-06 passport" {
		t.Fatalf("recipient 8 got %q", got)
	}
}

func TestHandleUpdate(t *testing.T) {
	t.Parallel()
	b, out, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, tg.Update{Message: &tg.Message{
		MessageID: 3,
		Chat:      &tg.Chat{ID: 42},
		Text:      "add 2024-03-05 dentist",
	}}, out)
	b.HandleUpdate(ctx, tg.Update{}, out)
	b.HandleUpdate(ctx, tg.Update{Message: &tg.Message{Chat: &tg.Chat{ID: 42}}}, out)

	if got := out.get(42); len(got) != 1 || got[0] != "Added date: 2024-03-05" {
		t.Fatalf("replies = %q", got)
	}
}

func TestPollStopsWhenChannelCloses(t *testing.T) {
	t.Parallel()
	b, out, _ := newTestBot(t, nil)

	updates := make(chan tg.Update, 2)
	updates <- tg.Update{Message: &tg.Message{Chat: &tg.Chat{ID: 5}, Text: "list"}}
	close(updates)

	done := make(chan struct{})
	go func() {
		b.Poll(context.Background(), updates, out)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Poll did not return after the channel closed")
	}
	if got := out.get(5); len(got) != 1 || got[0] != noReminders {
		t.Fatalf("replies = %q", got)
	}
}

func TestStartScheduler(t *testing.T) {
	t.Parallel()
	b, _, _ := newTestBot(t, nil)

	b.cfg.CronSchedule = "not a schedule"
	if err := b.StartScheduler(); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}

	b.cfg.CronSchedule = "0 9 * * *"
	if err := b.StartScheduler(); err != nil {
		t.Fatalf("StartScheduler: %v", err)
	}
	if n := len(b.cron.Entries()); n != 1 {
		t.Fatalf("expected one scheduled entry, got %d", n)
	}
	b.StopScheduler()
}
