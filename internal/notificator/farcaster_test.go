package notificator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainradar/radar/pkg/logger"
)

type fakeResolver map[string]string

func (r fakeResolver) Username(_ context.Context, fid string) (string, error) {
	name, ok := r[fid]
	if !ok {
		return "", errors.New("unknown fid")
	}
	return name, nil
}

func TestFarcasterDeliver(t *testing.T) {
	var got castRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/farcaster/cast", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"cast":{"hash":"0xabc"}}`))
	}))
	defer srv.Close()

	f := NewFarcasterNotificator(logger.NewNop(), srv.URL+"/", "key", "signer", fakeResolver{"42": "alice"})
	delivery, err := f.Deliver(context.Background(), "42", "whale swapped", "https://radar.example/frame")
	require.NoError(t, err)
	assert.True(t, delivery.Success)
	assert.Equal(t, "0xabc", delivery.ReceiptID)

	assert.Equal(t, "signer", got.SignerUUID)
	assert.Equal(t, "@alice whale swapped", got.Text)
	assert.Equal(t, []castEmbed{{URL: "https://radar.example/frame"}}, got.Embeds)
}

func TestFarcasterDeliverErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFarcasterNotificator(logger.NewNop(), srv.URL, "key", "signer", fakeResolver{"42": "alice"})

	_, err := f.Deliver(context.Background(), "7", "msg", "")
	assert.ErrorContains(t, err, "resolve farcaster username")

	_, err = f.Deliver(context.Background(), "42", "msg", "")
	assert.ErrorContains(t, err, "429")
}
