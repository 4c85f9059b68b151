package activity

import (
	"fmt"
	"strings"

	"github.com/onchainradar/radar/internal/models"
)

// NewSince returns the transactions strictly newer than cursor.
//
// txs must be newest first. The scan stops at the first transaction whose hash
// equals cursor. With an empty cursor (first poll of the address) the page is
// the candidate set, cut to coldStartDepth when that is positive. When the
// cursor is not on the page every transaction is returned; if more than a page
// of activity happened since the last sweep the older part is never seen.
func NewSince(txs []*models.Transaction, cursor string, coldStartDepth int) ([]*models.Transaction, error) {
	for i, tx := range txs {
		if tx == nil || tx.TxHash == "" {
			return nil, fmt.Errorf("%w: transaction %d has no hash", models.ErrValidation, i)
		}
	}

	if cursor == "" {
		if coldStartDepth > 0 && len(txs) > coldStartDepth {
			return txs[:coldStartDepth], nil
		}
		return txs, nil
	}

	for i, tx := range txs {
		if strings.EqualFold(tx.TxHash, cursor) {
			return txs[:i], nil
		}
	}
	return txs, nil
}
