package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/onchainradar/radar/pkg/logger"
)

const (
	// bulkLimit is the max number of fids per bulk lookup
	bulkLimit = 100
	// cacheTTL is how long a resolved username is trusted
	cacheTTL = 6 * time.Hour
	// refreshInterval is the period of the background refresh
	refreshInterval = 1 * time.Hour
)

// UsersResponse is the response of /farcaster/user/bulk
type UsersResponse struct {
	Users []User `json:"users"`
}

// User is a Farcaster user as returned by Neynar
type User struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type entry struct {
	username  string
	fetchedAt time.Time
}

// Directory resolves Farcaster FIDs to usernames through Neynar and keeps
// them in an in-memory cache.
type Directory struct {
	logger  *logger.Logger
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time

	// In-memory cache
	cache      map[int64]entry
	cacheMutex sync.RWMutex

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDirectory creates a new Directory instance
func NewDirectory(baseURL, apiKey string, logger *logger.Logger) *Directory {
	ctx, cancel := context.WithCancel(context.Background())
	return &Directory{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		now:    time.Now,
		cache:  make(map[int64]entry),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Username returns the username of a FID, from cache when fresh.
func (d *Directory) Username(ctx context.Context, fid string) (string, error) {
	id, err := strconv.ParseInt(fid, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid fid %q: %w", fid, err)
	}

	d.cacheMutex.RLock()
	e, ok := d.cache[id]
	d.cacheMutex.RUnlock()
	if ok && d.now().Sub(e.fetchedAt) < cacheTTL {
		return e.username, nil
	}

	users, err := d.fetchUsers(ctx, []int64{id})
	if err != nil {
		if ok {
			d.logger.Warn("Using stale username after lookup failure", "fid", id, "error", err)
			return e.username, nil
		}
		return "", err
	}
	d.store(users)

	for _, u := range users {
		if u.FID == id {
			return u.Username, nil
		}
	}
	return "", fmt.Errorf("farcaster user %d not found", id)
}

func (d *Directory) store(users []User) {
	now := d.now()
	d.cacheMutex.Lock()
	defer d.cacheMutex.Unlock()
	for _, u := range users {
		d.cache[u.FID] = entry{username: u.Username, fetchedAt: now}
	}
}

// Refresh re-resolves every cached FID in batches, with a bounded number of
// concurrent requests.
func (d *Directory) Refresh(ctx context.Context) error {
	d.cacheMutex.RLock()
	fids := make([]int64, 0, len(d.cache))
	for fid := range d.cache {
		fids = append(fids, fid)
	}
	d.cacheMutex.RUnlock()

	if len(fids) == 0 {
		return nil
	}

	const maxConcurrent = 4
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	for start := 0; start < len(fids); start += bulkLimit {
		end := start + bulkLimit
		if end > len(fids) {
			end = len(fids)
		}
		batch := fids[start:end]

		wg.Add(1)
		sem <- struct{}{}
		go func(batch []int64) {
			defer wg.Done()
			defer func() { <-sem }()

			users, err := d.fetchUsers(ctx, batch)
			if err != nil {
				d.logger.Error("Failed to refresh farcaster users", "count", len(batch), "error", err)
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			d.store(users)
		}(batch)
	}
	wg.Wait()

	d.logger.Info("Farcaster directory refreshed", "fids", len(fids))
	return firstErr
}

func (d *Directory) fetchUsers(ctx context.Context, fids []int64) ([]User, error) {
	ids := make([]string, 0, len(fids))
	for _, fid := range fids {
		ids = append(ids, strconv.FormatInt(fid, 10))
	}
	url := fmt.Sprintf("%s/farcaster/user/bulk?fids=%s", d.baseURL, strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch farcaster users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var usersResp UsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&usersResp); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}
	return usersResp.Users, nil
}

// StartPeriodicUpdate starts a goroutine that refreshes cached usernames
func (d *Directory) StartPeriodicUpdate() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := d.Refresh(d.ctx); err != nil {
					d.logger.Error("Failed to refresh farcaster directory", "error", err)
				}
			case <-d.ctx.Done():
				d.logger.Info("Farcaster directory refresh stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the periodic refresh
func (d *Directory) Stop() {
	d.cancel()
	d.wg.Wait()
}
