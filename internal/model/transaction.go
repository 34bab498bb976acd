package model

import "time"

// Transaction is one accepted ad-network postback. The row's existence is
// the dedup signal: a second postback carrying the same TransactionID is a
// no-op. Rows are never mutated or deleted.
type Transaction struct {
	TransactionID string
	TelegramID    int64
	Source        string
	RewardAmount  int
	ReceivedAt    time.Time
}
