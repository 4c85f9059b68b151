package notificator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/internal/repository"
	"github.com/onchainradar/radar/pkg/logger"
)

const target = "0x52908400098527886e0f7030069857d2e4169ee7"

type fakeGenerator struct {
	text string
	err  error
	got  []models.MessageContext
}

func (g *fakeGenerator) ComposeMessage(_ context.Context, msg models.MessageContext) (string, error) {
	g.got = append(g.got, msg)
	return g.text, g.err
}

type delivered struct {
	recipient, message, link string
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []delivered
	err      error
	noAck    bool
	panicMsg string
}

func (c *fakeChannel) Deliver(_ context.Context, recipient, message, link string) (*models.Delivery, error) {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, delivered{recipient, message, link})
	if c.noAck {
		return &models.Delivery{Success: false}, nil
	}
	return &models.Delivery{ReceiptID: "0xcast", Success: true}, nil
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

var errChannelDown = errors.New("channel down")

func seed(t *testing.T) (models.Repository, *models.Subscription, *models.Activity) {
	t.Helper()
	ctx := context.Background()
	repo, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "radar.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	sub := &models.Subscription{FollowerID: "42", TargetAddress: target, TargetName: "whale", ThresholdUSD: 500, Active: true}
	require.NoError(t, repo.AddSubscription(ctx, sub))
	act, _, err := repo.InsertActivityIfAbsent(ctx, &models.Activity{
		WalletAddress: target,
		TxHash:        "0xtx",
		Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TxType:        models.ActivitySwap,
		AmountUSD:     1500,
		Chain:         "base",
	})
	require.NoError(t, err)
	return repo, sub, act
}
