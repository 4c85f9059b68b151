package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultThresholdUSD is applied when a follow request omits the USD threshold.
	DefaultThresholdUSD = 500
	// DefaultThresholdTxCount is applied when a follow request omits the tx-count threshold.
	DefaultThresholdTxCount = 1
)

// Subscription represents a follower watching a target address.
type Subscription struct {
	// ID is the unique identifier of the subscription.
	ID string `json:"id" gorm:"column:id;primaryKey;size:36"`
	// FollowerID is the follower identity on the delivery channel
	// (Farcaster FID, Telegram chat ID or email address).
	FollowerID string `json:"follower_id" gorm:"column:follower_id;index;not null"`
	// FollowerAddress is the follower's own wallet address.
	FollowerAddress string `json:"follower_address" gorm:"column:follower_address"`
	// TargetAddress is the wallet being watched, lower-case hex.
	TargetAddress string `json:"target_address" gorm:"column:target_address;index;not null"`
	// TargetName is an optional display name for the target.
	TargetName string `json:"target_name,omitempty" gorm:"column:target_name"`
	// ThresholdUSD is the minimal USD value of an activity worth a notification.
	ThresholdUSD float64 `json:"threshold_usd" gorm:"column:threshold_usd;default:500"`
	// ThresholdTxCount is stored but not used as a gate.
	ThresholdTxCount int `json:"threshold_tx_count" gorm:"column:threshold_tx_count;default:1"`
	// Channel is the delivery channel for this subscription.
	Channel ChannelName `json:"channel" gorm:"column:channel;size:16;default:farcaster"`
	// Active is false once the follower unfollowed. Subscriptions are never hard-deleted.
	Active bool `json:"is_active" gorm:"column:is_active;index;default:true"`
	// CreatedAt is the time the follow request was accepted.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	// LastChecked is the time of the last sweep that processed this subscription.
	LastChecked *time.Time `json:"last_checked,omitempty" gorm:"column:last_checked"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "wallet_subscriptions"
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// EffectiveThresholdUSD returns the USD threshold, falling back to the default
// for rows that were stored without one.
func (s *Subscription) EffectiveThresholdUSD() float64 {
	if s.ThresholdUSD <= 0 {
		return DefaultThresholdUSD
	}
	return s.ThresholdUSD
}
