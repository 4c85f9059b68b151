package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationStatus is the delivery state of a notification record.
// pending -> sent | failed; failed records may be redelivered by the resender.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationRecord links a subscription to an activity and records the
// delivery outcome. At most one record exists per (SubscriptionID, ActivityID).
type NotificationRecord struct {
	ID             string             `json:"id" gorm:"column:id;primaryKey;size:36"`
	SubscriptionID string             `json:"subscription_id" gorm:"column:subscription_id;not null;uniqueIndex:idx_notification_pair,priority:1"`
	ActivityID     string             `json:"activity_id" gorm:"column:activity_id;not null;uniqueIndex:idx_notification_pair,priority:2"`
	Status         NotificationStatus `json:"status" gorm:"column:status;size:16;index;not null"`
	// ReceiptID is the channel-assigned id (cast hash, telegram message id).
	ReceiptID string     `json:"receipt_id,omitempty" gorm:"column:receipt_id"`
	Error     string     `json:"error,omitempty" gorm:"column:error"`
	Attempts  int        `json:"attempts" gorm:"column:attempts"`
	SentAt    *time.Time `json:"sent_at,omitempty" gorm:"column:sent_at"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`

	Subscription *Subscription `json:"-" gorm:"foreignKey:SubscriptionID"`
	Activity     *Activity     `json:"-" gorm:"foreignKey:ActivityID"`
}

// TableName specifies the table name for GORM
func (NotificationRecord) TableName() string {
	return "notifications"
}

func (n *NotificationRecord) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
