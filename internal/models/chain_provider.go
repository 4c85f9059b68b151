package models

import "context"

// ChainProvider returns recent transactions of an address, newest first.
type ChainProvider interface {
	FetchRecentTransactions(ctx context.Context, address string, chainID int, pageSize int) ([]*Transaction, error)
}
