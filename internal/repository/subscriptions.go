package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/onchainradar/radar/internal/models"
)

func (db *DB) AddSubscription(ctx context.Context, sub *models.Subscription) error {
	if err := db.Conn.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (db *DB) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Conn.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", notFound(err))
	}
	return &sub, nil
}

func (db *DB) ListFollowerSubscriptions(ctx context.Context, followerID string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := db.Conn.WithContext(ctx).
		Where("follower_id = ? AND is_active = ?", followerID, true).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to get follower subscriptions: %w", err)
	}
	return subs, nil
}

func (db *DB) ListActiveSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := db.Conn.WithContext(ctx).Where("is_active = ?", true).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to get active subscriptions: %w", err)
	}
	return subs, nil
}

func (db *DB) DeactivateSubscription(ctx context.Context, id string) error {
	res := db.Conn.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to deactivate subscription: %w", models.ErrNotFound)
	}
	return nil
}

func (db *DB) UpdateLastChecked(ctx context.Context, id string, checkedAt time.Time) error {
	if err := db.Conn.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Update("last_checked", checkedAt).Error; err != nil {
		return fmt.Errorf("failed to update last checked: %w", err)
	}
	return nil
}
