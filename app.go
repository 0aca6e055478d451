package main

import (
	"fmt"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pathakanu/remindbot/internal/bot"
	"github.com/pathakanu/remindbot/internal/config"
	"github.com/pathakanu/remindbot/internal/database"
	"github.com/pathakanu/remindbot/internal/engine"
	"github.com/pathakanu/remindbot/internal/logging"
	myopenai "github.com/pathakanu/remindbot/internal/openai"
	"github.com/pathakanu/remindbot/internal/store"
	"github.com/pathakanu/remindbot/internal/telegram"
	"github.com/pathakanu/remindbot/internal/twilio"
	"github.com/pathakanu/remindbot/internal/window"
)

// app holds everything serve and tick share.
type app struct {
	bot      *bot.Bot
	telegram *telegram.Client
}

func loadConfig() (*config.Config, *zap.SugaredLogger, func() error, error) {
	cfg := config.Load()
	log, flush := logging.New("remindbot", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, log, flush, err
	}
	return cfg, log, flush, nil
}

func openDatabase(cfg *config.Config, log *zap.SugaredLogger) (*gorm.DB, error) {
	return database.New(database.Options{
		Driver:     cfg.DatabaseDriver,
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}, log)
}

// newApp wires storage, the chat gateway and the tick engine. reg may be nil.
func newApp(cfg *config.Config, log *zap.SugaredLogger, reg prometheus.Registerer) (*app, error) {
	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	st := store.New(db)

	a := &app{}

	var sender engine.Sender
	switch cfg.Gateway {
	case config.GatewayTelegram:
		tc, err := telegram.New(cfg.TelegramToken, log.Named("telegram"))
		if err != nil {
			return nil, err
		}
		a.telegram = tc
		sender = tc
		log.Infow("telegram gateway ready", "bot", tc.Username(), "mode", cfg.TelegramMode)
	case config.GatewayWhatsApp:
		sender = twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, log.Named("twilio"))
		log.Infow("whatsapp gateway ready", "from", cfg.TwilioWhatsAppNumber)
	default:
		return nil, fmt.Errorf("unknown gateway %q", cfg.Gateway)
	}

	kind, err := window.ParsePolicy(cfg.WindowPolicy)
	if err != nil {
		return nil, err
	}

	var reporter engine.Reporter = engine.NewLogReporter(log)
	if cfg.OperatorChatID != 0 {
		reporter = engine.NewOperatorReporter(reporter, sender, cfg.OperatorChatID, log)
	}
	var metrics *engine.Metrics
	if reg != nil {
		metrics = engine.NewMetrics(reg)
	}

	eng := engine.New(st, sender, log.Named("engine"), engine.Options{
		Policy: window.Policy{
			Kind:           kind,
			LookaheadDays:  cfg.WindowLookaheadDays,
			LookbehindDays: cfg.WindowLookbehindDays,
		},
		Label:       cfg.ReminderLabel,
		Concurrency: cfg.DispatchConcurrency,
		Reporter:    reporter,
		Metrics:     metrics,
	})

	var classifier bot.IntentClassifier
	if oa := myopenai.New(cfg.OpenAIAPIKey); oa.Enabled() {
		classifier = oa
	}

	a.bot = bot.New(cfg, st, eng, classifier, clock.New(), log.Named("bot"))
	return a, nil
}
