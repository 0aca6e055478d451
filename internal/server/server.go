// Package server exposes the inbound chat webhooks, a health check and the
// Prometheus metrics over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pathakanu/remindbot/internal/bot"
	"github.com/pathakanu/remindbot/internal/twilio"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Responder answers one chat message. *bot.Bot implements it.
type Responder interface {
	Respond(ctx context.Context, recipientID int64, text string) string
	HandleUpdate(ctx context.Context, upd tg.Update, r bot.Replier)
}

// Options selects which routes the router carries.
type Options struct {
	Bot Responder

	// Telegram enables POST /telegram/webhook. Updates must carry TelegramSecret.
	Telegram       bot.Replier
	TelegramSecret string

	// WhatsApp enables POST /twilio/webhook.
	WhatsApp bool

	Gatherer prometheus.Gatherer
	Log      *zap.SugaredLogger
}

// twiml is the body Twilio expects back from a messaging webhook.
type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// NewRouter builds the gin engine for the configured gateway.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if opts.Telegram != nil {
		router.POST("/telegram/webhook", telegramWebhook(opts))
	}
	if opts.WhatsApp {
		router.POST("/twilio/webhook", twilioWebhook(opts))
	}
	return router
}

func telegramWebhook(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(telegramSecretHeader)
		if opts.TelegramSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(opts.TelegramSecret)) != 1 {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		var upd tg.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			opts.Log.Warnw("telegram webhook: bad update", "err", err)
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		opts.Bot.HandleUpdate(c.Request.Context(), upd, opts.Telegram)
		c.Status(http.StatusOK)
	}
}

func twilioWebhook(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		from := c.PostForm("From")
		body := strings.TrimSpace(c.PostForm("Body"))
		if from == "" || body == "" {
			c.XML(http.StatusOK, twiml{Message: "I need a message to work with. Please try again."})
			return
		}

		recipientID, err := twilio.RecipientID(from)
		if err != nil {
			opts.Log.Warnw("twilio webhook: bad sender", "from", from, "err", err)
			c.XML(http.StatusOK, twiml{Message: "Sorry, I couldn't understand that request."})
			return
		}

		c.XML(http.StatusOK, twiml{Message: opts.Bot.Respond(c.Request.Context(), recipientID, body)})
	}
}
