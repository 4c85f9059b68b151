package notificator

import (
	"context"
	"fmt"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

// Notificator composes messages and dispatches them through the channel of
// each subscription, recording the outcome as a NotificationRecord.
type Notificator struct {
	logger *logger.Logger
	repo   models.Repository

	composer     *Composer
	channels     map[models.ChannelName]models.Channel
	frameBaseURL string
	timeout      time.Duration
	now          func() time.Time
}

func NewNotificator(
	logger *logger.Logger,
	repo models.Repository,
	composer *Composer,
	channels map[models.ChannelName]models.Channel,
	frameBaseURL string,
	timeout time.Duration,
) *Notificator {
	return &Notificator{
		logger:       logger,
		repo:         repo,
		composer:     composer,
		channels:     channels,
		frameBaseURL: frameBaseURL,
		timeout:      timeout,
		now:          time.Now,
	}
}

// Notify claims the (subscription, activity) pair and delivers once. An
// already claimed pair is skipped and nil is returned.
func (n *Notificator) Notify(ctx context.Context, sub *models.Subscription, activity *models.Activity) (*models.NotificationRecord, error) {
	record := &models.NotificationRecord{
		SubscriptionID: sub.ID,
		ActivityID:     activity.ID,
		Status:         models.NotificationPending,
	}

	claimCtx, cancel := context.WithTimeout(ctx, n.timeout)
	claimed, err := n.repo.ClaimNotification(claimCtx, record)
	cancel()
	if err != nil {
		return nil, err
	}
	if !claimed {
		n.logger.Debug("Notification already recorded", "subscription", sub.ID, "activity", activity.ID)
		return nil, nil
	}

	return n.deliver(ctx, sub, activity, record)
}

// Redeliver makes one more attempt for a failed record. The record must have
// its Subscription and Activity loaded.
func (n *Notificator) Redeliver(ctx context.Context, record *models.NotificationRecord) (*models.NotificationRecord, error) {
	if record.Subscription == nil || record.Activity == nil {
		return nil, fmt.Errorf("%w: notification %s has no subscription or activity", models.ErrValidation, record.ID)
	}
	return n.deliver(ctx, record.Subscription, record.Activity, record)
}

func (n *Notificator) deliver(ctx context.Context, sub *models.Subscription, activity *models.Activity, record *models.NotificationRecord) (*models.NotificationRecord, error) {
	message := n.composer.Compose(ctx, sub, activity)

	record.Attempts++
	delivery, err := n.send(ctx, sub, message, n.link(sub))
	switch {
	case err != nil:
		record.Status = models.NotificationFailed
		record.Error = err.Error()
		n.logger.Warn("Notification delivery failed", "subscription", sub.ID, "activity", activity.ID, "channel", sub.Channel, "error", err)
	case !delivery.Success:
		record.Status = models.NotificationFailed
		record.Error = "channel did not acknowledge delivery"
		n.logger.Warn("Notification not acknowledged", "subscription", sub.ID, "activity", activity.ID, "channel", sub.Channel)
	default:
		sentAt := n.now()
		record.Status = models.NotificationSent
		record.ReceiptID = delivery.ReceiptID
		record.Error = ""
		record.SentAt = &sentAt
		n.logger.Info("Notification sent", "subscription", sub.ID, "activity", activity.ID, "channel", sub.Channel, "receipt", delivery.ReceiptID)
	}

	updateCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.repo.UpdateNotification(updateCtx, record); err != nil {
		return record, err
	}
	return record, nil
}

// send runs the channel call with a timeout and panic recovery
func (n *Notificator) send(ctx context.Context, sub *models.Subscription, message, link string) (delivery *models.Delivery, err error) {
	name := sub.Channel
	if name == "" {
		name = models.ChannelFarcaster
	}
	channel, ok := n.channels[name]
	if !ok {
		return nil, fmt.Errorf("channel %q is not configured", name)
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Channel panicked", "channel", name, "panic", r, "stack", string(debug.Stack()))
			delivery, err = nil, fmt.Errorf("channel %s panicked: %v", name, r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	delivery, err = channel.Deliver(sendCtx, sub.FollowerID, message, link)
	if err == nil && delivery == nil {
		err = fmt.Errorf("channel %s returned no delivery", name)
	}
	return delivery, err
}

func (n *Notificator) link(sub *models.Subscription) string {
	if n.frameBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/frame?address=%s", n.frameBaseURL, url.QueryEscape(sub.TargetAddress))
}
