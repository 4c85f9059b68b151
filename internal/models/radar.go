package models

import "context"

// SweepResult holds the aggregate counts of one sweep.
type SweepResult struct {
	Checked       int `json:"checked"`
	NewActivities int `json:"newActivities"`
	Errors        int `json:"errors"`
}

// ResendResult holds the outcome of a resend run over failed notifications.
type ResendResult struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// RadarI is the application surface used by the API server, the scheduler and the bot.
type RadarI interface {
	// Sweep runs one pass over all active subscriptions.
	Sweep(ctx context.Context) (*SweepResult, error)

	// Follow stores a new subscription.
	Follow(ctx context.Context, sub *Subscription) (*Subscription, error)
	// Unfollow deactivates a subscription owned by followerID.
	Unfollow(ctx context.Context, id, followerID string) error
	// Subscriptions lists the active subscriptions of a follower.
	Subscriptions(ctx context.Context, followerID string) ([]*Subscription, error)

	// RecentActivity returns stored activities of an address, newest first.
	RecentActivity(ctx context.Context, address string, limit int) ([]*Activity, error)

	// ResendFailed redelivers failed notifications.
	ResendFailed(ctx context.Context, limit int) (*ResendResult, error)
}

// APIServer is the HTTP surface of the service.
type APIServer interface {
	Start()
	Shutdown() error
}
