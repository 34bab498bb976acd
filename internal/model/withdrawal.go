package model

import (
	"time"

	"github.com/google/uuid"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal is an advisory payout record: the points are debited from the
// account when the request is created, and credited back only if an admin
// rejects it. Approval moves no points.
type Withdrawal struct {
	ID           uuid.UUID
	TelegramID   int64
	Username     string
	AmountPoints int
	Method       string
	Destination  string
	Status       WithdrawalStatus
	RequestedAt  time.Time
	ProcessedAt  *time.Time
}
