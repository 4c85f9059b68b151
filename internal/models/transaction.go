package models

import "time"

// Transaction is a raw transaction as returned by the chain data provider.
type Transaction struct {
	TxHash      string
	BlockHeight int64
	Timestamp   time.Time
	From        string
	To          string
	ValueUSD    float64
	Successful  bool
	Logs        []LogEvent
}

// LogEvent is a decoded log event of a transaction. Only the event name is
// used for classification.
type LogEvent struct {
	Name            string
	ContractAddress string
}
