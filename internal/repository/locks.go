package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/onchainradar/radar/internal/models"
)

// AcquireLock takes the named lease for ttl. Expired leases are taken over.
func (db *DB) AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	acquired := false
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lock_name = ? AND expires_at < ?", name, now.Unix()).Delete(&models.AppLock{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AppLock{
			LockName:   name,
			InstanceID: instanceID,
			AcquiredAt: now.Unix(),
			ExpiresAt:  now.Add(ttl).Unix(),
		})
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return acquired, nil
}

func (db *DB) ReleaseLock(ctx context.Context, name, instanceID string) error {
	if err := db.Conn.WithContext(ctx).Where("lock_name = ? AND instance_id = ?", name, instanceID).Delete(&models.AppLock{}).Error; err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
