package models

import (
	"context"
	"time"
)

type Repository interface {
	AddSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	ListFollowerSubscriptions(ctx context.Context, followerID string) ([]*Subscription, error)
	ListActiveSubscriptions(ctx context.Context) ([]*Subscription, error)
	DeactivateSubscription(ctx context.Context, id string) error
	UpdateLastChecked(ctx context.Context, id string, checkedAt time.Time) error

	// GetRecentActivities returns the newest stored activities of an address.
	GetRecentActivities(ctx context.Context, address string, limit int) ([]*Activity, error)
	// InsertActivityIfAbsent stores the activity unless (address, tx hash) exists.
	// It returns the stored row and whether this call created it.
	InsertActivityIfAbsent(ctx context.Context, activity *Activity) (*Activity, bool, error)

	// ClaimNotification inserts a pending record unless the pair already has one.
	ClaimNotification(ctx context.Context, record *NotificationRecord) (bool, error)
	UpdateNotification(ctx context.Context, record *NotificationRecord) error
	ListFailedNotifications(ctx context.Context, limit int) ([]*NotificationRecord, error)

	AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error

	Close() error
}
