package notificator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
	"github.com/onchainradar/radar/pkg/validation"
)

const telegramHelp = "Commands:\n/watch <address> [threshold_usd]\n/unwatch <address>\n/list"

// TelegramNotificator delivers notifications to Telegram chats and lets chats
// follow and unfollow addresses with bot commands. The chat ID is the follower identity.
type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot

	radar models.RadarI
}

func NewTelegramNotificator(logger *logger.Logger, token string, opts ...bot.Option) (*TelegramNotificator, error) {
	provider := &TelegramNotificator{
		logger: logger,
	}
	opts = append([]bot.Option{bot.WithDefaultHandler(provider.handler)}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	provider.bot = b

	return provider, nil
}

// AttachRadar enables the follow commands. Must be called before Start.
func (t *TelegramNotificator) AttachRadar(radar models.RadarI) {
	t.radar = radar
}

// Start polls Telegram for updates until ctx is done.
func (t *TelegramNotificator) Start(ctx context.Context) {
	t.bot.Start(ctx)
}

func (t *TelegramNotificator) Deliver(ctx context.Context, recipient, message, link string) (*models.Delivery, error) {
	text := message
	if link != "" {
		text += "\n\n" + link
	}
	msg, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: recipient,
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send telegram message: %w", err)
	}
	return &models.Delivery{ReceiptID: strconv.Itoa(msg.ID), Success: true}, nil
}

func (t *TelegramNotificator) handler(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	t.logger.Debug("Telegram update", "chat", chatID, "text", update.Message.Text)

	reply := t.handleCommand(ctx, chatID, update.Message.Text)
	if reply == "" {
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		t.logger.Error("Failed to reply to telegram command", "chat", chatID, "error", err)
	}
}

// handleCommand executes a bot command for chatID and returns the reply text.
func (t *TelegramNotificator) handleCommand(ctx context.Context, chatID, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	if t.radar == nil {
		return "Following is not available right now."
	}

	switch fields[0] {
	case "/start", "/help":
		return "Welcome to Onchain Radar!\n" + telegramHelp
	case "/watch":
		if len(fields) < 2 {
			return "Usage: /watch <address> [threshold_usd]"
		}
		sub := &models.Subscription{
			FollowerID:    chatID,
			TargetAddress: fields[1],
			Channel:       models.ChannelTelegram,
		}
		if len(fields) > 2 {
			threshold, err := strconv.ParseFloat(fields[2], 64)
			if err != nil || threshold <= 0 {
				return "Threshold must be a positive USD amount."
			}
			sub.ThresholdUSD = threshold
		}
		created, err := t.radar.Follow(ctx, sub)
		if err != nil {
			t.logger.Warn("Telegram follow failed", "chat", chatID, "error", err)
			return "Could not watch this address: " + err.Error()
		}
		return fmt.Sprintf("Watching %s for activity above $%.0f.", validation.ShortAddress(created.TargetAddress), created.ThresholdUSD)
	case "/unwatch":
		if len(fields) < 2 {
			return "Usage: /unwatch <address>"
		}
		address, err := validation.ValidateAndNormalizeAddress(fields[1])
		if err != nil {
			return "Invalid address: " + err.Error()
		}
		subs, err := t.radar.Subscriptions(ctx, chatID)
		if err != nil {
			t.logger.Error("Failed to list telegram subscriptions", "chat", chatID, "error", err)
			return "Something went wrong, try again later."
		}
		removed := 0
		for _, sub := range subs {
			if sub.TargetAddress != address {
				continue
			}
			if err := t.radar.Unfollow(ctx, sub.ID, chatID); err != nil {
				t.logger.Error("Failed to unfollow", "chat", chatID, "subscription", sub.ID, "error", err)
				continue
			}
			removed++
		}
		if removed == 0 {
			return "You are not watching this address."
		}
		return fmt.Sprintf("Stopped watching %s.", validation.ShortAddress(address))
	case "/list":
		subs, err := t.radar.Subscriptions(ctx, chatID)
		if err != nil {
			t.logger.Error("Failed to list telegram subscriptions", "chat", chatID, "error", err)
			return "Something went wrong, try again later."
		}
		if len(subs) == 0 {
			return "You are not watching any address. " + telegramHelp
		}
		var sb strings.Builder
		sb.WriteString("Watching:")
		for _, sub := range subs {
			fmt.Fprintf(&sb, "\n• %s (>$%.0f)", DisplayName(sub), sub.EffectiveThresholdUSD())
		}
		return sb.String()
	}
	return ""
}
