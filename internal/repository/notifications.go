package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/onchainradar/radar/internal/models"
)

func (db *DB) ClaimNotification(ctx context.Context, record *models.NotificationRecord) (bool, error) {
	if record.Status == "" {
		record.Status = models.NotificationPending
	}
	res := db.Conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "activity_id"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim notification: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (db *DB) UpdateNotification(ctx context.Context, record *models.NotificationRecord) error {
	if err := db.Conn.WithContext(ctx).Model(&models.NotificationRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":     record.Status,
			"receipt_id": record.ReceiptID,
			"error":      record.Error,
			"attempts":   record.Attempts,
			"sent_at":    record.SentAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return nil
}

// ListFailedNotifications returns failed records of still-active subscriptions, oldest first.
func (db *DB) ListFailedNotifications(ctx context.Context, limit int) ([]*models.NotificationRecord, error) {
	var records []*models.NotificationRecord
	active := db.Conn.Model(&models.Subscription{}).Select("id").Where("is_active = ?", true)
	if err := db.Conn.WithContext(ctx).
		Preload("Subscription").
		Preload("Activity").
		Where("status = ?", models.NotificationFailed).
		Where("subscription_id IN (?)", active).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get failed notifications: %w", err)
	}
	return records, nil
}
