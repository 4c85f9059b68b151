// Package activity holds the pure parts of the sweep: classifying a raw
// transaction and selecting the transactions newer than the dedup cursor.
package activity

import (
	"fmt"

	"github.com/onchainradar/radar/internal/models"
)

// SignificanceFloorUSD is the value below which no transaction is significant,
// whatever the subscription threshold.
const SignificanceFloorUSD = 100

// Classification is the result of classifying a transaction.
type Classification struct {
	Type        models.ActivityType
	Significant bool
	Description string
}

// log markers in precedence order
var markers = []struct {
	name string
	typ  models.ActivityType
}{
	{"Swap", models.ActivitySwap},
	{"Mint", models.ActivityMint},
	{"Bridge", models.ActivityBridge},
}

// Classify maps a transaction to its activity type and provisional significance.
func Classify(tx *models.Transaction) Classification {
	typ := models.ActivityTransfer
	for _, m := range markers {
		if hasLog(tx.Logs, m.name) {
			typ = m.typ
			break
		}
	}

	return Classification{
		Type:        typ,
		Significant: tx.ValueUSD >= SignificanceFloorUSD,
		Description: fmt.Sprintf("%s worth %.2f USD", typ, tx.ValueUSD),
	}
}

func hasLog(logs []models.LogEvent, name string) bool {
	for _, l := range logs {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Qualifies reports whether a classified transaction passes a subscription's threshold.
func Qualifies(c Classification, tx *models.Transaction, sub *models.Subscription) bool {
	return c.Significant && tx.ValueUSD >= sub.EffectiveThresholdUSD()
}
