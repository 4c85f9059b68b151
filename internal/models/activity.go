package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityType is the semantic type of an on-chain activity.
type ActivityType string

const (
	ActivitySwap     ActivityType = "swap"
	ActivityMint     ActivityType = "mint"
	ActivityBridge   ActivityType = "bridge"
	ActivityTransfer ActivityType = "transfer"
)

// Activity is an on-chain occurrence of a target address that crossed the
// significance threshold. At most one row exists per (WalletAddress, TxHash).
type Activity struct {
	// ID is the unique identifier of the activity.
	ID string `json:"id" gorm:"column:id;primaryKey;size:36"`
	// WalletAddress is the target address the activity belongs to.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;not null;uniqueIndex:idx_activity_wallet_tx,priority:1;index:idx_activity_wallet_time,priority:1"`
	// TxHash is the transaction hash.
	TxHash string `json:"tx_hash" gorm:"column:tx_hash;not null;uniqueIndex:idx_activity_wallet_tx,priority:2"`
	// BlockNumber is the block height of the transaction.
	BlockNumber int64 `json:"block_number" gorm:"column:block_number"`
	// Timestamp is the block time.
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;index:idx_activity_wallet_time,priority:2"`
	// TxType is the classified activity type.
	TxType ActivityType `json:"tx_type" gorm:"column:tx_type;size:16"`
	// AmountUSD is the USD value of the transaction.
	AmountUSD float64 `json:"amount_usd" gorm:"column:amount_usd"`
	// Chain is the chain name (base, ethereum, ...).
	Chain string `json:"chain" gorm:"column:chain;size:32"`
	// Metadata carries counterparties and the human description.
	Metadata datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	// CreatedAt is the time the activity was stored.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (Activity) TableName() string {
	return "wallet_activities"
}

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Description returns the human description stored in the metadata bag.
func (a *Activity) Description() string {
	if a.Metadata == nil {
		return ""
	}
	d, _ := a.Metadata["description"].(string)
	return d
}
