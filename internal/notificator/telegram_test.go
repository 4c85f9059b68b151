package notificator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

type fakeRadar struct {
	models.RadarI
	subs map[string]*models.Subscription
	seq  int
}

func (r *fakeRadar) Follow(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	r.seq++
	sub.ID = fmt.Sprintf("sub-%d", r.seq)
	sub.TargetAddress = "0x52908400098527886e0f7030069857d2e4169ee7"
	if sub.ThresholdUSD == 0 {
		sub.ThresholdUSD = models.DefaultThresholdUSD
	}
	r.subs[sub.ID] = sub
	return sub, nil
}

func (r *fakeRadar) Unfollow(_ context.Context, id, followerID string) error {
	sub, ok := r.subs[id]
	if !ok {
		return models.ErrNotFound
	}
	if sub.FollowerID != followerID {
		return models.ErrForbidden
	}
	delete(r.subs, id)
	return nil
}

func (r *fakeRadar) Subscriptions(_ context.Context, followerID string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, sub := range r.subs {
		if sub.FollowerID == followerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func TestTelegramCommands(t *testing.T) {
	ctx := context.Background()
	radar := &fakeRadar{subs: map[string]*models.Subscription{}}
	tg := &TelegramNotificator{logger: logger.NewNop()}

	assert.Equal(t, "Following is not available right now.", tg.handleCommand(ctx, "1", "/list"))

	tg.AttachRadar(radar)
	assert.Contains(t, tg.handleCommand(ctx, "1", "/start"), "/watch <address>")
	assert.Contains(t, tg.handleCommand(ctx, "1", "/list"), "not watching any address")
	assert.Equal(t, "Usage: /watch <address> [threshold_usd]", tg.handleCommand(ctx, "1", "/watch"))
	assert.Equal(t, "Threshold must be a positive USD amount.", tg.handleCommand(ctx, "1", "/watch "+target+" -5"))

	assert.Equal(t, "Watching 0x5290...9ee7 for activity above $1000.", tg.handleCommand(ctx, "1", "/watch "+target+" 1000"))
	require.Len(t, radar.subs, 1)
	for _, sub := range radar.subs {
		assert.Equal(t, models.ChannelTelegram, sub.Channel)
		assert.Equal(t, "1", sub.FollowerID)
	}

	assert.Equal(t, "Watching:\n• Wallet 0x5290...9ee7 (>$1000)", tg.handleCommand(ctx, "1", "/list"))

	assert.Equal(t, "You are not watching this address.", tg.handleCommand(ctx, "2", "/unwatch "+target))
	assert.Contains(t, tg.handleCommand(ctx, "1", "/unwatch nope"), "Invalid address")
	assert.Equal(t, "Stopped watching 0x5290...9ee7.", tg.handleCommand(ctx, "1", "/unwatch "+target))
	assert.Empty(t, radar.subs)

	assert.Empty(t, tg.handleCommand(ctx, "1", "hello"))
}
