package bot

import (
	"context"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Replier answers a chat message in place.
type Replier interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
}

// HandleUpdate answers a Telegram text message. The chat id is the recipient id,
// so reminders added in a group are delivered to that group.
func (b *Bot) HandleUpdate(ctx context.Context, upd tg.Update, r Replier) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	reply := b.Respond(ctx, msg.Chat.ID, msg.Text)
	if err := r.Reply(ctx, msg.Chat.ID, msg.MessageID, reply); err != nil {
		b.logger.Errorw("failed to reply", "chat", msg.Chat.ID, "err", err)
	}
}

// Poll handles updates until the channel closes or ctx is done.
func (b *Bot) Poll(ctx context.Context, updates <-chan tg.Update, r Replier) {
	b.logger.Info("telegram long polling started")
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, upd, r)
		}
	}
}
