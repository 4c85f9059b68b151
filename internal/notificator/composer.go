package notificator

import (
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
	"github.com/onchainradar/radar/pkg/validation"
)

var emojis = map[models.ActivityType]string{
	models.ActivitySwap:     "🔄",
	models.ActivityTransfer: "💸",
	models.ActivityMint:     "🎨",
	models.ActivityBridge:   "🌉",
}

var verbs = map[models.ActivityType]string{
	models.ActivitySwap:     "swapped",
	models.ActivityTransfer: "transferred",
	models.ActivityMint:     "minted",
	models.ActivityBridge:   "bridged",
}

// Composer turns an activity into a notification text. The text generator is
// best effort; any failure falls back to a fixed template.
type Composer struct {
	logger    *logger.Logger
	generator models.TextGenerator
	timeout   time.Duration
	printer   *message.Printer
}

// NewComposer creates a composer. generator may be nil, in which case the
// template is always used.
func NewComposer(generator models.TextGenerator, timeout time.Duration, logger *logger.Logger) *Composer {
	return &Composer{
		logger:    logger,
		generator: generator,
		timeout:   timeout,
		printer:   message.NewPrinter(language.English),
	}
}

func (c *Composer) Compose(ctx context.Context, sub *models.Subscription, activity *models.Activity) string {
	msg := models.MessageContext{
		TargetAddress: sub.TargetAddress,
		DisplayName:   DisplayName(sub),
		TxType:        activity.TxType,
		AmountUSD:     activity.AmountUSD,
		Chain:         activity.Chain,
	}

	if c.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		text, err := c.generator.ComposeMessage(genCtx, msg)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		c.logger.Warn("Text generation unavailable, using template", "address", sub.TargetAddress, "error", err)
	}
	return c.Fallback(msg)
}

// Fallback renders the templated message.
func (c *Composer) Fallback(msg models.MessageContext) string {
	emoji, ok := emojis[msg.TxType]
	if !ok {
		emoji = "⚡"
	}
	verb, ok := verbs[msg.TxType]
	if !ok {
		verb = string(msg.TxType)
	}
	amount := c.printer.Sprintf("$%d", int64(math.Round(msg.AmountUSD)))
	return c.printer.Sprintf("%s %s just %s %s on %s!\n\nCheck the details in Onchain Radar 📡",
		emoji, msg.DisplayName, verb, amount, strings.ToUpper(msg.Chain))
}

// DisplayName returns the target name or a shortened address.
func DisplayName(sub *models.Subscription) string {
	if sub.TargetName != "" {
		return sub.TargetName
	}
	return "Wallet " + validation.ShortAddress(sub.TargetAddress)
}
