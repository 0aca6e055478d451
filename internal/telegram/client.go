// Package telegram wraps the Telegram Bot API for sending reminders and
// receiving chat updates.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageLen is Telegram's limit for a single text message, in characters.
const maxMessageLen = 4096

// Client sends messages through a Telegram bot.
type Client struct {
	api *tg.BotAPI
	log *zap.SugaredLogger
}

// New authorizes the bot token against the Telegram API.
func New(token string, log *zap.SugaredLogger) (*Client, error) {
	api, err := tg.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize bot: %w", err)
	}
	return newClient(api, log), nil
}

// NewWithEndpoint is New against a custom API endpoint and HTTP client.
// The endpoint has the same form as tg.APIEndpoint.
func NewWithEndpoint(token, endpoint string, client tg.HTTPClient, log *zap.SugaredLogger) (*Client, error) {
	api, err := tg.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize bot: %w", err)
	}
	return newClient(api, log), nil
}

func newClient(api *tg.BotAPI, log *zap.SugaredLogger) *Client {
	api.Debug = false
	log.Infof("authorized on account %q", api.Self.UserName)
	return &Client{api: api, log: log}
}

// Username is the bot's own @name.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Send delivers text to a chat. Texts over Telegram's length limit go out as
// several consecutive messages split on line boundaries.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.api.Send(tg.NewMessage(chatID, part)); err != nil {
			return fmt.Errorf("telegram: send to %d: %w", chatID, err)
		}
	}
	return nil
}

// Reply answers a specific message in its chat.
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tg.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: reply in %d: %w", chatID, err)
	}
	return nil
}

// Updates long-polls for updates until ctx is done.
func (c *Client) Updates(ctx context.Context) <-chan tg.Update {
	u := tg.NewUpdate(0)
	u.Timeout = 60

	updates := c.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		c.api.StopReceivingUpdates()
	}()
	return updates
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break between lines.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if chunk := strings.TrimRight(current.String(), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		if currentLen > 0 {
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if currentLen+n > limit {
			flush()
		}
		for n > limit {
			// a single line longer than the limit is hard-cut
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		current.WriteString(line)
		currentLen += n
	}
	flush()
	return parts
}
