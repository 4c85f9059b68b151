package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

// transactionsResponse is the envelope of the transactions_v3 endpoint
type transactionsResponse struct {
	Data struct {
		Items []covalentTx `json:"items"`
	} `json:"data"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

type covalentTx struct {
	TxHash        string             `json:"tx_hash"`
	BlockHeight   int64              `json:"block_height"`
	BlockSignedAt time.Time          `json:"block_signed_at"`
	FromAddress   string             `json:"from_address"`
	ToAddress     string             `json:"to_address"`
	ValueQuote    *float64           `json:"value_quote"`
	Successful    bool               `json:"successful"`
	LogEvents     []covalentLogEvent `json:"log_events"`
}

type covalentLogEvent struct {
	SenderAddress string `json:"sender_address"`
	Decoded       *struct {
		Name string `json:"name"`
	} `json:"decoded"`
}

// Covalent fetches address history from the Covalent (GoldRush) API.
type Covalent struct {
	logger  *logger.Logger
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewCovalent creates a new Covalent client. ratePerSec caps outgoing requests
// across all concurrent sweep workers.
func NewCovalent(baseURL, apiKey string, ratePerSec int, logger *logger.Logger) *Covalent {
	if ratePerSec <= 0 {
		ratePerSec = 4
	}
	return &Covalent{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// FetchRecentTransactions returns up to pageSize transactions of address, newest first.
func (c *Covalent) FetchRecentTransactions(ctx context.Context, address string, chainID int, pageSize int) ([]*models.Transaction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/%d/address/%s/transactions_v3/?page-size=%s", c.baseURL, chainID, address, strconv.Itoa(pageSize))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var txResp transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&txResp); err != nil {
		return nil, fmt.Errorf("failed to decode transactions response: %w", err)
	}
	if txResp.Error {
		return nil, fmt.Errorf("provider error: %s", txResp.ErrorMessage)
	}

	c.logger.Debug("Fetched transactions", "address", address, "chain", chainID, "count", len(txResp.Data.Items), "duration", time.Since(start))

	txs := make([]*models.Transaction, 0, len(txResp.Data.Items))
	for _, item := range txResp.Data.Items {
		txs = append(txs, item.toTransaction())
	}
	if len(txs) > pageSize {
		txs = txs[:pageSize]
	}
	return txs, nil
}

func (t covalentTx) toTransaction() *models.Transaction {
	tx := &models.Transaction{
		TxHash:      t.TxHash,
		BlockHeight: t.BlockHeight,
		Timestamp:   t.BlockSignedAt.UTC(),
		From:        strings.ToLower(t.FromAddress),
		To:          strings.ToLower(t.ToAddress),
		Successful:  t.Successful,
	}
	if t.ValueQuote != nil {
		tx.ValueUSD = *t.ValueQuote
	}
	for _, l := range t.LogEvents {
		event := models.LogEvent{ContractAddress: l.SenderAddress}
		if l.Decoded != nil {
			event.Name = l.Decoded.Name
		}
		tx.Logs = append(tx.Logs, event)
	}
	return tx
}
