package twilio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// messageCreator is the part of the Twilio REST API the client uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Client wraps Twilio WhatsApp messaging. Recipients are identified by the
// digits of their phone number.
type Client struct {
	api          messageCreator
	fromWhatsApp string
	log          *zap.SugaredLogger
}

// New creates a Twilio client bound to the configured WhatsApp sender number.
func New(accountSID, authToken, fromWhatsApp string, log *zap.SugaredLogger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	return &Client{
		api:          rest.Api,
		fromWhatsApp: fromWhatsApp,
		log:          log,
	}
}

// Send delivers a WhatsApp message to the number whose digits are recipientID.
func (c *Client) Send(ctx context.Context, recipientID int64, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.api == nil {
		return fmt.Errorf("twilio client not initialised")
	}

	sender := normalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return fmt.Errorf("twilio sender WhatsApp number is not configured")
	}
	if recipientID <= 0 {
		return fmt.Errorf("recipient number missing or invalid")
	}
	recipient := normalizeWhatsAppAddress(strconv.FormatInt(recipientID, 10))

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(body)

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message error: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		c.log.Debugw("twilio message sent", "to", recipient, "sid", *resp.Sid)
	}
	return nil
}

// RecipientID turns a Twilio "From" address such as "whatsapp:+15551234567"
// into the numeric recipient id used for storage.
func RecipientID(from string) (int64, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:"), "+")
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("twilio: invalid sender address %q", from)
	}
	return id, nil
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}
