package models

import "context"

// ChannelName identifies a messaging channel.
type ChannelName string

const (
	ChannelFarcaster ChannelName = "farcaster"
	ChannelTelegram  ChannelName = "telegram"
	ChannelEmail     ChannelName = "email"
)

// Delivery is the channel acknowledgment of a delivered message.
type Delivery struct {
	ReceiptID string
	Success   bool
}

// Channel delivers a message to a follower identity.
type Channel interface {
	Deliver(ctx context.Context, recipient, message, link string) (*Delivery, error)
}

// MessageContext is what the text generator gets to phrase a notification.
type MessageContext struct {
	TargetAddress string
	DisplayName   string
	TxType        ActivityType
	AmountUSD     float64
	Chain         string
}

// TextGenerator phrases notification messages.
type TextGenerator interface {
	ComposeMessage(ctx context.Context, msg MessageContext) (string, error)
}

// NotificationService composes and dispatches notifications for stored activities.
type NotificationService interface {
	// Notify delivers a notification for the pair unless one was already recorded.
	// It returns nil, nil when the pair was already claimed.
	Notify(ctx context.Context, sub *Subscription, activity *Activity) (*NotificationRecord, error)
	// Redeliver retries a failed record.
	Redeliver(ctx context.Context, record *NotificationRecord) (*NotificationRecord, error)
}
