package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/onchainradar/radar/internal/models"
)

func (db *DB) GetRecentActivities(ctx context.Context, address string, limit int) ([]*models.Activity, error) {
	var activities []*models.Activity
	if err := db.Conn.WithContext(ctx).
		Where("wallet_address = ?", address).
		Order("timestamp DESC").
		Order("block_number DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent activities: %w", err)
	}
	return activities, nil
}

// InsertActivityIfAbsent relies on the (wallet_address, tx_hash) unique index:
// concurrent inserts of the same pair resolve in the database, the loser reads
// back the winner's row.
func (db *DB) InsertActivityIfAbsent(ctx context.Context, activity *models.Activity) (*models.Activity, bool, error) {
	res := db.Conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "tx_hash"}},
			DoNothing: true,
		}).
		Create(activity)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to insert activity: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return activity, true, nil
	}

	var existing models.Activity
	if err := db.Conn.WithContext(ctx).
		Where("wallet_address = ? AND tx_hash = ?", activity.WalletAddress, activity.TxHash).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to read existing activity: %w", notFound(err))
	}
	db.logger.Debug("Activity already stored", "address", activity.WalletAddress, "tx", activity.TxHash)
	return &existing, false, nil
}
