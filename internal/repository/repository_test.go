package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

const target = "0x52908400098527886e0f7030069857d2e4169ee7"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	repo, err := NewSQLiteDB(filepath.Join(t.TempDir(), "radar.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo.(*DB)
}

func newActivity(hash string, ts time.Time) *models.Activity {
	return &models.Activity{
		WalletAddress: target,
		TxHash:        hash,
		BlockNumber:   ts.Unix(),
		Timestamp:     ts,
		TxType:        models.ActivitySwap,
		AmountUSD:     1000,
		Chain:         "base",
		Metadata:      datatypes.JSONMap{"description": "swap worth 1000.00 USD"},
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	sub := &models.Subscription{FollowerID: "42", TargetAddress: target, ThresholdUSD: 750, Active: true}
	require.NoError(t, db.AddSubscription(ctx, sub))
	require.NotEmpty(t, sub.ID)

	active, err := db.ListActiveSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 750.0, active[0].ThresholdUSD)
	assert.Equal(t, models.ChannelFarcaster, active[0].Channel)

	checked := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.UpdateLastChecked(ctx, sub.ID, checked))
	got, err := db.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastChecked)
	assert.True(t, checked.Equal(*got.LastChecked))

	require.NoError(t, db.DeactivateSubscription(ctx, sub.ID))
	active, err = db.ListActiveSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// soft delete keeps the row
	got, err = db.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = db.GetSubscription(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, db.DeactivateSubscription(ctx, "missing"), models.ErrNotFound)
}

func TestInsertActivityIfAbsent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first, created, err := db.InsertActivityIfAbsent(ctx, newActivity("0xaaa", ts))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := db.InsertActivityIfAbsent(ctx, newActivity("0xaaa", ts))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "swap worth 1000.00 USD", second.Description())

	recent, err := db.GetRecentActivities(ctx, target, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestInsertActivityIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := db.InsertActivityIfAbsent(ctx, newActivity("0xbbb", ts))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	recent, err := db.GetRecentActivities(ctx, target, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestGetRecentActivitiesOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, hash := range []string{"0x1", "0x3", "0x2"} {
		offset := map[string]int{"0x1": 1, "0x2": 2, "0x3": 3}[hash]
		_, _, err := db.InsertActivityIfAbsent(ctx, newActivity(hash, base.Add(time.Duration(offset)*time.Minute)))
		require.NoError(t, err, "insert %d", i)
	}

	recent, err := db.GetRecentActivities(ctx, target, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "0x3", recent[0].TxHash)

	none, err := db.GetRecentActivities(ctx, "0x0000000000000000000000000000000000000001", 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNotificationClaimAndFailedList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	sub := &models.Subscription{FollowerID: "42", TargetAddress: target, Active: true}
	require.NoError(t, db.AddSubscription(ctx, sub))
	act, _, err := db.InsertActivityIfAbsent(ctx, newActivity("0xccc", time.Now().UTC()))
	require.NoError(t, err)

	record := &models.NotificationRecord{SubscriptionID: sub.ID, ActivityID: act.ID}
	claimed, err := db.ClaimNotification(ctx, record)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, models.NotificationPending, record.Status)

	claimed, err = db.ClaimNotification(ctx, &models.NotificationRecord{SubscriptionID: sub.ID, ActivityID: act.ID})
	require.NoError(t, err)
	assert.False(t, claimed)

	record.Status = models.NotificationFailed
	record.Error = "channel down"
	record.Attempts = 1
	require.NoError(t, db.UpdateNotification(ctx, record))

	failed, err := db.ListFailedNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "channel down", failed[0].Error)
	require.NotNil(t, failed[0].Subscription)
	require.NotNil(t, failed[0].Activity)
	assert.Equal(t, "0xccc", failed[0].Activity.TxHash)

	// records of unfollowed subscriptions are not redelivered
	require.NoError(t, db.DeactivateSubscription(ctx, sub.ID))
	failed, err = db.ListFailedNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestLocks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	ok, err := db.AcquireLock(ctx, "sweep", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.AcquireLock(ctx, "sweep", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.ReleaseLock(ctx, "sweep", "a"))
	ok, err = db.AcquireLock(ctx, "sweep", "b", -time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// b's lease is already expired and can be taken over
	ok, err = db.AcquireLock(ctx, "sweep", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
