package notificator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

func newTestNotificator(repo models.Repository, gen models.TextGenerator, ch models.Channel) *Notificator {
	channels := map[models.ChannelName]models.Channel{models.ChannelFarcaster: ch}
	return NewNotificator(logger.NewNop(), repo, NewComposer(gen, time.Second, logger.NewNop()), channels, "https://radar.example", time.Second)
}

func TestNotifySent(t *testing.T) {
	repo, sub, act := seed(t)
	ch := &fakeChannel{}
	n := newTestNotificator(repo, &fakeGenerator{text: "hello"}, ch)

	record, err := n.Notify(context.Background(), sub, act)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.NotificationSent, record.Status)
	assert.Equal(t, "0xcast", record.ReceiptID)
	assert.Equal(t, 1, record.Attempts)
	assert.NotNil(t, record.SentAt)

	require.Equal(t, 1, ch.count())
	assert.Equal(t, delivered{"42", "hello", "https://radar.example/api/frame?address=" + target}, ch.sent[0])
}

func TestNotifyOncePerPair(t *testing.T) {
	repo, sub, act := seed(t)
	ch := &fakeChannel{}
	n := newTestNotificator(repo, nil, ch)

	_, err := n.Notify(context.Background(), sub, act)
	require.NoError(t, err)
	record, err := n.Notify(context.Background(), sub, act)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, ch.count())
}

func TestNotifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		channel *fakeChannel
		errText string
	}{
		{"delivery error", &fakeChannel{err: errChannelDown}, "channel down"},
		{"no acknowledgment", &fakeChannel{noAck: true}, "did not acknowledge"},
		{"channel panic", &fakeChannel{panicMsg: "boom"}, "panicked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, sub, act := seed(t)
			n := newTestNotificator(repo, nil, tt.channel)

			record, err := n.Notify(context.Background(), sub, act)
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, models.NotificationFailed, record.Status)
			assert.Contains(t, record.Error, tt.errText)

			failed, err := repo.ListFailedNotifications(context.Background(), 10)
			require.NoError(t, err)
			assert.Len(t, failed, 1)
		})
	}
}

func TestNotifyUnknownChannel(t *testing.T) {
	repo, sub, act := seed(t)
	sub.Channel = models.ChannelEmail
	n := newTestNotificator(repo, nil, &fakeChannel{})

	record, err := n.Notify(context.Background(), sub, act)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, record.Status)
	assert.Contains(t, record.Error, "not configured")
}

func TestNotifyComposerDegradationDoesNotFail(t *testing.T) {
	repo, sub, act := seed(t)
	ch := &fakeChannel{}
	n := newTestNotificator(repo, &fakeGenerator{err: context.DeadlineExceeded}, ch)

	record, err := n.Notify(context.Background(), sub, act)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, record.Status)
	require.Equal(t, 1, ch.count())
	assert.Contains(t, ch.sent[0].message, "whale just swapped $1,500 on BASE!")
}

func TestRedeliver(t *testing.T) {
	repo, sub, act := seed(t)
	ch := &fakeChannel{err: errChannelDown}
	n := newTestNotificator(repo, nil, ch)

	_, err := n.Notify(context.Background(), sub, act)
	require.NoError(t, err)

	failed, err := repo.ListFailedNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	ch.err = nil
	record, err := n.Redeliver(context.Background(), failed[0])
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, record.Status)
	assert.Equal(t, 2, record.Attempts)
	assert.Empty(t, record.Error)

	failed, err = repo.ListFailedNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	_, err = n.Redeliver(context.Background(), &models.NotificationRecord{ID: "x"})
	assert.ErrorIs(t, err, models.ErrValidation)
}
