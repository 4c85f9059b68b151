package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainradar/radar/pkg/logger"
)

func neynarServer(t *testing.T, calls *int32, fail *atomic.Bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/farcaster/user/bulk", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		if fail != nil && fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var users []string
		for _, fid := range strings.Split(r.URL.Query().Get("fids"), ",") {
			if fid == "404" {
				continue
			}
			users = append(users, `{"fid":`+fid+`,"username":"user`+fid+`"}`)
		}
		w.Write([]byte(`{"users":[` + strings.Join(users, ",") + `]}`))
	}))
}

func TestUsernameCaches(t *testing.T) {
	var calls int32
	srv := neynarServer(t, &calls, nil)
	defer srv.Close()

	d := NewDirectory(srv.URL, "key", logger.NewNop())
	name, err := d.Username(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "user3", name)

	name, err = d.Username(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "user3", name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUsernameErrors(t *testing.T) {
	var calls int32
	srv := neynarServer(t, &calls, nil)
	defer srv.Close()

	d := NewDirectory(srv.URL, "key", logger.NewNop())
	_, err := d.Username(context.Background(), "not-a-fid")
	assert.Error(t, err)
	_, err = d.Username(context.Background(), "404")
	assert.Error(t, err)
}

func TestUsernameStaleOnFailure(t *testing.T) {
	var calls int32
	var fail atomic.Bool
	srv := neynarServer(t, &calls, &fail)
	defer srv.Close()

	d := NewDirectory(srv.URL, "key", logger.NewNop())
	_, err := d.Username(context.Background(), "7")
	require.NoError(t, err)

	// expire the entry and break the API
	d.now = func() time.Time { return time.Now().Add(2 * cacheTTL) }
	fail.Store(true)

	name, err := d.Username(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "user7", name)
}

func TestRefresh(t *testing.T) {
	var calls int32
	srv := neynarServer(t, &calls, nil)
	defer srv.Close()

	d := NewDirectory(srv.URL, "key", logger.NewNop())
	require.NoError(t, d.Refresh(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	for i := 1; i <= 3; i++ {
		_, err := d.Username(context.Background(), string(rune('0'+i)))
		require.NoError(t, err)
	}
	require.NoError(t, d.Refresh(context.Background()))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}
