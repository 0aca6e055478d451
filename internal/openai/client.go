package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK for classifying free text the command grammar
// doesn't understand.
type Client struct {
	client *openai.Client
	model  openai.ChatModel
}

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("openai client not initialised")

// Intent is the action inferred from a free-text message.
type Intent string

const (
	IntentUnknown   Intent = "unknown"
	IntentList      Intent = "list_reminders"
	IntentDeleteAll Intent = "delete_all_reminders"
	IntentHelp      Intent = "help"
)

const classifyPrompt = "Classify the user's message to a date reminder bot. " +
	"Reply with exactly one label: list_reminders, delete_all_reminders, help, or unknown. " +
	"Adding or deleting a single reminder needs an explicit date, so label those requests help."

// New returns a client. Without an API key every call reports ErrClientNotInitialised.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// ClassifyIntent uses the language model to infer the user's intent.
func (c *Client) ClassifyIntent(ctx context.Context, content string) (Intent, error) {
	if strings.TrimSpace(content) == "" {
		return IntentUnknown, fmt.Errorf("content cannot be empty")
	}
	if !c.Enabled() {
		return IntentUnknown, ErrClientNotInitialised
	}

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(classifyPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(content),
					},
				},
			},
		},
		Temperature:         openai.Float(0.0),
		MaxCompletionTokens: openai.Int(8),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return IntentUnknown, err
	}
	if len(resp.Choices) == 0 {
		return IntentUnknown, fmt.Errorf("no completion received")
	}

	return ParseIntent(resp.Choices[0].Message.Content), nil
}

// ParseIntent maps a model label to an Intent, defaulting to IntentUnknown.
func ParseIntent(label string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(label))) {
	case IntentList:
		return IntentList
	case IntentDeleteAll:
		return IntentDeleteAll
	case IntentHelp:
		return IntentHelp
	default:
		return IntentUnknown
	}
}
