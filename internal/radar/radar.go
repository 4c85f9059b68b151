package radar

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onchainradar/radar/internal/activity"
	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
	"github.com/onchainradar/radar/pkg/validation"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
	defaultResendLimit   = 50
)

// Config holds the sweep parameters.
type Config struct {
	ChainID        int
	ChainName      string
	PageSize       int
	ColdStartDepth int
	Concurrency    int
	// CallTimeout bounds every store and provider call.
	CallTimeout time.Duration
}

// Radar is the main struct of the application.
// It owns the sweep over active subscriptions and serves the follow API.
type Radar struct {
	logger *logger.Logger
	config Config

	repo        models.Repository
	provider    models.ChainProvider
	notificator models.NotificationService

	now func() time.Time
}

func NewRadar(
	repo models.Repository,
	provider models.ChainProvider,
	notificator models.NotificationService,
	logger *logger.Logger,
	config Config,
) *Radar {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Radar{
		logger:      logger,
		config:      config,
		repo:        repo,
		provider:    provider,
		notificator: notificator,
		now:         time.Now,
	}
}

// target is the set of subscriptions watching one address. The address is
// fetched and its cursor read once per sweep.
type target struct {
	address string
	subs    []*models.Subscription
}

type targetResult struct {
	checked       int
	newActivities int
	errors        int
}

// Sweep runs one pass over all active subscriptions. Only a failure to list
// the subscriptions is returned as an error; everything else is counted.
//
// Once ctx is done no new address is started. Addresses already started run
// to completion, each call bounded by CallTimeout. Stored activities are
// delivered on a separate pool so slow channels do not hold the scan slots;
// Sweep returns once every delivery has finished.
func (r *Radar) Sweep(ctx context.Context) (*models.SweepResult, error) {
	started := r.now()

	listCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	subs, err := r.repo.ListActiveSubscriptions(listCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	targets := groupByTarget(subs)
	r.logger.Info("Sweep started", "subscriptions", len(subs), "addresses", len(targets))

	var (
		mu      sync.Mutex
		result  models.SweepResult
		skipped int
	)
	work := context.WithoutCancel(ctx)

	var dispatch errgroup.Group
	sem := make(chan struct{}, r.config.Concurrency)
	enqueue := func(sub *models.Subscription, acts []*models.Activity) {
		dispatch.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			r.notify(work, sub, acts)
			return nil
		})
	}

	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				skipped += len(t.subs)
				mu.Unlock()
				return nil
			}
			res := r.sweepTarget(work, t, enqueue)
			mu.Lock()
			result.Checked += res.checked
			result.NewActivities += res.newActivities
			result.Errors += res.errors
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	_ = dispatch.Wait()

	if skipped > 0 {
		r.logger.Warn("Sweep deadline reached, subscriptions left for the next sweep", "skipped", skipped, "error", ctx.Err())
	}
	r.logger.Info("Sweep finished",
		"checked", result.Checked,
		"newActivities", result.NewActivities,
		"errors", result.Errors,
		"duration", time.Since(started).String(),
	)
	return &result, nil
}

// groupByTarget keeps the order in which addresses first appear.
func groupByTarget(subs []*models.Subscription) []*target {
	index := make(map[string]*target)
	var targets []*target
	for _, sub := range subs {
		key := strings.ToLower(strings.TrimSpace(sub.TargetAddress))
		t, ok := index[key]
		if !ok {
			t = &target{address: key}
			index[key] = t
			targets = append(targets, t)
		}
		t.subs = append(t.subs, sub)
	}
	return targets
}

func (r *Radar) sweepTarget(
	ctx context.Context,
	t *target,
	enqueue func(sub *models.Subscription, acts []*models.Activity),
) targetResult {
	address, err := validation.ValidateAndNormalizeAddress(t.address)
	if err != nil {
		r.logger.Error("Invalid target address", "address", t.address, "subscriptions", len(t.subs), "error", err)
		return targetResult{errors: len(t.subs)}
	}

	fresh, classes, err := r.scanTarget(ctx, address)
	if err != nil {
		r.logger.Error("Failed to scan address", "address", t.address, "subscriptions", len(t.subs), "error", err)
		return targetResult{errors: len(t.subs)}
	}

	perSub := make([][]*models.Activity, len(t.subs))
	created, err := r.persistNew(ctx, address, t.subs, fresh, classes, perSub)
	res := targetResult{newActivities: created}

	// what was stored before a failure is delivered all the same
	for i, sub := range t.subs {
		if len(perSub[i]) > 0 {
			enqueue(sub, perSub[i])
		}
	}

	if err != nil {
		r.logger.Error("Failed to store activity", "address", t.address, "subscriptions", len(t.subs), "error", err)
		res.errors = len(t.subs)
		return res
	}

	for _, sub := range t.subs {
		if err := r.touch(ctx, sub); err != nil {
			r.logger.Error("Failed to update subscription", "subscription", sub.ID, "address", t.address, "error", err)
			res.errors++
			continue
		}
		res.checked++
	}
	return res
}

// scanTarget fetches the recent page of address and returns the transactions
// past the dedup cursor with their classification.
func (r *Radar) scanTarget(ctx context.Context, address string) ([]*models.Transaction, []activity.Classification, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	txs, err := r.provider.FetchRecentTransactions(fetchCtx, address, r.config.ChainID, r.config.PageSize)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	cursor, err := r.cursor(ctx, address)
	if err != nil {
		return nil, nil, err
	}

	fresh, err := activity.NewSince(txs, cursor, r.config.ColdStartDepth)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("Address scanned", "address", address, "fetched", len(txs), "new", len(fresh), "cursor", cursor)

	classes := make([]activity.Classification, len(fresh))
	for i, tx := range fresh {
		classes[i] = activity.Classify(tx)
	}
	return fresh, classes, nil
}

// cursor is the tx hash of the newest stored activity of address, empty when
// the address has none yet.
func (r *Radar) cursor(ctx context.Context, address string) (string, error) {
	readCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	defer cancel()
	recent, err := r.repo.GetRecentActivities(readCtx, address, 1)
	if err != nil {
		return "", fmt.Errorf("failed to read cursor: %w", err)
	}
	if len(recent) == 0 {
		return "", nil
	}
	return recent[0].TxHash, nil
}

// persistNew stores the fresh transactions that pass the threshold of at
// least one subscription and collects them per subscription in perSub. It
// walks oldest first and stops at the first store error, so nothing newer
// than an unstored transaction is written and the cursor stays behind it. It
// returns the number of activities it created.
func (r *Radar) persistNew(
	ctx context.Context,
	address string,
	subs []*models.Subscription,
	fresh []*models.Transaction,
	classes []activity.Classification,
	perSub [][]*models.Activity,
) (int, error) {
	created := 0
	for i := len(fresh) - 1; i >= 0; i-- {
		tx := fresh[i]
		var stored *models.Activity
		for j, sub := range subs {
			if !activity.Qualifies(classes[i], tx, sub) {
				continue
			}
			if stored == nil {
				act, isNew, err := r.persist(ctx, address, tx, classes[i])
				if err != nil {
					return created, fmt.Errorf("failed to store %s: %w", tx.TxHash, err)
				}
				if isNew {
					created++
				}
				stored = act
			}
			perSub[j] = append(perSub[j], stored)
		}
	}
	return created, nil
}

// notify delivers the activities of one subscription in order. Failures are
// recorded on the notification and never fail the sweep.
func (r *Radar) notify(ctx context.Context, sub *models.Subscription, acts []*models.Activity) {
	for _, act := range acts {
		record, err := r.notificator.Notify(ctx, sub, act)
		if err != nil {
			r.logger.Error("Failed to notify", "subscription", sub.ID, "activity", act.ID, "error", err)
			continue
		}
		if record != nil && record.Status == models.NotificationFailed {
			r.logger.Warn("Notification failed", "subscription", sub.ID, "activity", act.ID, "error", record.Error)
		}
	}
}

func (r *Radar) touch(ctx context.Context, sub *models.Subscription) error {
	updateCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	defer cancel()
	return r.repo.UpdateLastChecked(updateCtx, sub.ID, r.now().UTC())
}

func (r *Radar) persist(ctx context.Context, address string, tx *models.Transaction, c activity.Classification) (*models.Activity, bool, error) {
	act := &models.Activity{
		WalletAddress: address,
		TxHash:        tx.TxHash,
		BlockNumber:   tx.BlockHeight,
		Timestamp:     tx.Timestamp,
		TxType:        c.Type,
		AmountUSD:     tx.ValueUSD,
		Chain:         r.config.ChainName,
		Metadata: map[string]interface{}{
			"from":        tx.From,
			"to":          tx.To,
			"description": c.Description,
		},
	}

	insertCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	defer cancel()
	stored, created, err := r.repo.InsertActivityIfAbsent(insertCtx, act)
	if err != nil {
		return nil, false, err
	}
	if created {
		r.logger.Info("New activity", "address", address, "tx", tx.TxHash, "type", c.Type, "usd", tx.ValueUSD)
	}
	return stored, created, nil
}

// Follow validates and stores a new subscription. Unset thresholds and
// channel get their defaults.
func (r *Radar) Follow(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if strings.TrimSpace(sub.FollowerID) == "" {
		return nil, fmt.Errorf("%w: follower id is required", models.ErrValidation)
	}
	address, err := validation.ValidateAndNormalizeAddress(strings.TrimSpace(sub.TargetAddress))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if sub.FollowerAddress != "" {
		followerAddress, err := validation.ValidateAndNormalizeAddress(strings.TrimSpace(sub.FollowerAddress))
		if err != nil {
			return nil, fmt.Errorf("%w: follower address: %v", models.ErrValidation, err)
		}
		sub.FollowerAddress = followerAddress
	}
	if sub.ThresholdUSD < 0 || sub.ThresholdTxCount < 0 {
		return nil, fmt.Errorf("%w: thresholds cannot be negative", models.ErrValidation)
	}
	if sub.ThresholdUSD == 0 {
		sub.ThresholdUSD = models.DefaultThresholdUSD
	}
	if sub.ThresholdTxCount == 0 {
		sub.ThresholdTxCount = models.DefaultThresholdTxCount
	}
	switch sub.Channel {
	case "":
		sub.Channel = models.ChannelFarcaster
	case models.ChannelFarcaster, models.ChannelTelegram, models.ChannelEmail:
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", models.ErrValidation, sub.Channel)
	}

	sub.FollowerID = strings.TrimSpace(sub.FollowerID)
	if sub.Channel == models.ChannelEmail {
		recipient, err := mail.ParseAddress(sub.FollowerID)
		if err != nil {
			return nil, fmt.Errorf("%w: follower id must be an email address: %v", models.ErrValidation, err)
		}
		sub.FollowerID = recipient.Address
	}

	sub.ID = ""
	sub.TargetAddress = address
	sub.TargetName = strings.TrimSpace(sub.TargetName)
	sub.Active = true
	sub.CreatedAt = r.now().UTC()
	sub.LastChecked = nil

	if err := r.repo.AddSubscription(ctx, sub); err != nil {
		return nil, err
	}
	r.logger.Info("New subscription", "id", sub.ID, "follower", sub.FollowerID, "address", sub.TargetAddress, "channel", sub.Channel)
	return sub, nil
}

// Unfollow deactivates a subscription. Only its follower may do that.
func (r *Radar) Unfollow(ctx context.Context, id, followerID string) error {
	sub, err := r.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.FollowerID != followerID {
		return models.ErrForbidden
	}
	if !sub.Active {
		return nil
	}
	if err := r.repo.DeactivateSubscription(ctx, id); err != nil {
		return err
	}
	r.logger.Info("Subscription deactivated", "id", id, "follower", followerID)
	return nil
}

func (r *Radar) Subscriptions(ctx context.Context, followerID string) ([]*models.Subscription, error) {
	if strings.TrimSpace(followerID) == "" {
		return nil, fmt.Errorf("%w: follower id is required", models.ErrValidation)
	}
	return r.repo.ListFollowerSubscriptions(ctx, followerID)
}

// RecentActivity returns stored activities of address, newest first. limit is
// clamped to [1, 100] with 20 as default.
func (r *Radar) RecentActivity(ctx context.Context, address string, limit int) ([]*models.Activity, error) {
	normalized, err := validation.ValidateAndNormalizeAddress(strings.TrimSpace(address))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	return r.repo.GetRecentActivities(ctx, normalized, limit)
}

// ResendFailed makes one more delivery attempt for up to limit failed
// notifications of active subscriptions.
func (r *Radar) ResendFailed(ctx context.Context, limit int) (*models.ResendResult, error) {
	if limit <= 0 {
		limit = defaultResendLimit
	}
	records, err := r.repo.ListFailedNotifications(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &models.ResendResult{}
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		result.Attempted++
		updated, err := r.notificator.Redeliver(ctx, record)
		if err != nil || updated == nil || updated.Status != models.NotificationSent {
			r.logger.Warn("Redelivery failed", "notification", record.ID, "error", err)
			result.Failed++
			continue
		}
		result.Sent++
	}
	r.logger.Info("Resend finished", "attempted", result.Attempted, "sent", result.Sent, "failed", result.Failed)
	return result, nil
}
