// Package textgen phrases notification messages with an LLM.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

const systemPrompt = "You write one-line push notifications about onchain wallet activity. " +
	"Be concise, at most 200 characters, mention the wallet name, the action and the USD amount. " +
	"Use at most one emoji. Never invent numbers."

var errEmptyCompletion = errors.New("empty completion")

// OpenAI implements models.TextGenerator with the chat completions API.
type OpenAI struct {
	logger *logger.Logger
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI text generator. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string, logger *logger.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		logger: logger,
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAI) ComposeMessage(ctx context.Context, msg models.MessageContext) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt(msg)},
		},
		Temperature: 0.8,
		MaxTokens:   120,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyCompletion
	}
	o.logger.Debug("Notification text generated", "address", msg.TargetAddress, "tokens", resp.Usage.TotalTokens)
	return text, nil
}

func prompt(msg models.MessageContext) string {
	return fmt.Sprintf(
		"Wallet: %s (%s)\nAction: %s\nAmount: $%.2f\nChain: %s\nWrite the notification.",
		msg.DisplayName, msg.TargetAddress, msg.TxType, msg.AmountUSD, strings.ToUpper(msg.Chain),
	)
}
