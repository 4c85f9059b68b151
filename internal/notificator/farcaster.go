package notificator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

// UsernameResolver maps a Farcaster FID to a username.
type UsernameResolver interface {
	Username(ctx context.Context, fid string) (string, error)
}

type castEmbed struct {
	URL string `json:"url"`
}

type castRequest struct {
	SignerUUID string      `json:"signer_uuid"`
	Text       string      `json:"text"`
	Embeds     []castEmbed `json:"embeds,omitempty"`
}

type castResponse struct {
	Success bool `json:"success"`
	Cast    struct {
		Hash string `json:"hash"`
	} `json:"cast"`
}

// FarcasterNotificator publishes casts mentioning the follower through Neynar.
type FarcasterNotificator struct {
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	signerUUID string
	directory  UsernameResolver
	client     *http.Client
}

func NewFarcasterNotificator(logger *logger.Logger, baseURL, apiKey, signerUUID string, directory UsernameResolver) *FarcasterNotificator {
	return &FarcasterNotificator{
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		signerUUID: signerUUID,
		directory:  directory,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Deliver casts "@username message". recipient is the follower FID.
func (f *FarcasterNotificator) Deliver(ctx context.Context, recipient, message, link string) (*models.Delivery, error) {
	username, err := f.directory.Username(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve farcaster username: %w", err)
	}

	body := castRequest{
		SignerUUID: f.signerUUID,
		Text:       fmt.Sprintf("@%s %s", username, message),
	}
	if link != "" {
		body.Embeds = []castEmbed{{URL: link}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/farcaster/cast", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post cast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(b))
	}

	var cast castResponse
	if err := json.NewDecoder(resp.Body).Decode(&cast); err != nil {
		return nil, fmt.Errorf("failed to decode cast response: %w", err)
	}
	f.logger.Debug("Cast published", "fid", recipient, "hash", cast.Cast.Hash)
	return &models.Delivery{ReceiptID: cast.Cast.Hash, Success: cast.Success || cast.Cast.Hash != ""}, nil
}
