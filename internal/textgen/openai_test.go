package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

var msg = models.MessageContext{
	TargetAddress: "0x52908400098527886e0f7030069857d2e4169ee7",
	DisplayName:   "vitalik",
	TxType:        models.ActivitySwap,
	AmountUSD:     1500,
	Chain:         "base",
}

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
			"usage":   map[string]int{"total_tokens": 42},
		})
	}))
}

func TestComposeMessage(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "  🔄 vitalik swapped $1,500 on BASE  ")
	defer srv.Close()

	gen := NewOpenAI("key", srv.URL+"/v1", "", logger.NewNop())
	text, err := gen.ComposeMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "🔄 vitalik swapped $1,500 on BASE", text)
}

func TestComposeMessageErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := completionServer(t, http.StatusTooManyRequests, "")
		defer srv.Close()
		gen := NewOpenAI("key", srv.URL+"/v1", "", logger.NewNop())
		_, err := gen.ComposeMessage(context.Background(), msg)
		assert.Error(t, err)
	})
	t.Run("blank completion", func(t *testing.T) {
		srv := completionServer(t, http.StatusOK, "   ")
		defer srv.Close()
		gen := NewOpenAI("key", srv.URL+"/v1", "", logger.NewNop())
		_, err := gen.ComposeMessage(context.Background(), msg)
		assert.ErrorIs(t, err, errEmptyCompletion)
	})
}

func TestPrompt(t *testing.T) {
	p := prompt(msg)
	assert.Contains(t, p, "vitalik")
	assert.Contains(t, p, "$1500.00")
	assert.Contains(t, p, "BASE")
}
