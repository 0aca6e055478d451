package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathakanu/remindbot/internal/bot"
	"github.com/pathakanu/remindbot/internal/config"
	"github.com/pathakanu/remindbot/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat webhooks and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, logger, flush, err := loadConfig()
	defer flush()
	if err != nil {
		logger.Errorw("invalid configuration", "err", err)
		return err
	}

	a, err := newApp(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Errorw("startup failed", "err", err)
		return err
	}

	if err := a.bot.StartScheduler(); err != nil {
		logger.Errorw("scheduler start failed", "err", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := server.Options{
		Bot:      a.bot,
		WhatsApp: cfg.Gateway == config.GatewayWhatsApp,
		Gatherer: prometheus.DefaultGatherer,
		Log:      logger.Named("http"),
	}
	if a.telegram != nil {
		if cfg.TelegramMode == "polling" {
			go a.bot.Poll(ctx, a.telegram.Updates(ctx), a.telegram)
		} else {
			opts.Telegram = a.telegram
			opts.TelegramSecret = cfg.TelegramSecretToken
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "err", err)
		}
	}()

	waitForShutdown(srv, a.bot, cancel, logger)
	return nil
}

func waitForShutdown(srv *http.Server, reminderBot *bot.Bot, stopPolling context.CancelFunc, logger *zap.SugaredLogger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopPolling()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnw("server shutdown error", "err", err)
	}
	reminderBot.StopScheduler()
}
