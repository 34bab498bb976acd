package service

import (
	"context"
	"errors"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrReferrerNotFound     = errors.New("referrer not found")
	ErrSelfReferral         = errors.New("self referral is not allowed")
	ErrAlreadyReferred      = errors.New("account already has a referrer")
	ErrInvalidAmount        = errors.New("invalid withdrawal amount")
	ErrBelowMinimumBalance  = errors.New("balance below withdrawal minimum")
	ErrBelowMinimumReferral = errors.New("referral count below withdrawal minimum")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrAlreadyProcessed     = errors.New("withdrawal already processed")
	ErrDuplicateTransaction = errors.New("transaction already credited")
	ErrInvalidDecision      = errors.New("invalid decision")
)

// RewardConfig carries the per-channel admission rules and the fixed
// referral bonus. Whether a channel claim credits points immediately or only
// counts the view is part of each rule (policy.Mode), not a code path choice.
type RewardConfig struct {
	Rules         map[model.Channel]policy.Rule
	ReferralBonus int
}

type WithdrawalConfig struct {
	MinBalance   int
	MinReferrals int
	MinAmount    int
}

type Service struct {
	*AccountService
	*RewardService
	*WithdrawalService
}

func NewService(accounts *AccountService, rewards *RewardService, withdrawals *WithdrawalService) *Service {
	return &Service{
		AccountService:    accounts,
		RewardService:     rewards,
		WithdrawalService: withdrawals,
	}
}

type AccountServiceI interface {
	Sync(ctx context.Context, acc *model.Account, referralHint string) (bool, error)
	GetAccount(ctx context.Context, telegramID int64) (*model.Account, error)
	GetReferrals(ctx context.Context, telegramID int64) ([]*model.AccountReferral, error)
}

type AccountRepository interface {
	CreateIfAbsent(ctx context.Context, acc *model.Account) (bool, error)
	AttachReferral(ctx context.Context, telegramID, referrerID int64, bonus int) error
	GetAccount(ctx context.Context, telegramID int64) (*model.Account, error)
	GetAccountReferrals(ctx context.Context, telegramID int64) ([]*model.AccountReferral, error)
}

type RewardServiceI interface {
	Claim(ctx context.Context, telegramID int64, channel model.Channel) (*ClaimResult, error)
	HandlePostback(ctx context.Context, txn *model.Transaction) (int, error)
}

type RewardRepository interface {
	CreditChannel(ctx context.Context, telegramID int64, rule policy.Rule, now time.Time) (int, error)
	RecordPostback(ctx context.Context, txn *model.Transaction, rule policy.Rule) (int, error)
}

type WithdrawalServiceI interface {
	Submit(ctx context.Context, telegramID int64, amount int, method, destination string) (*model.Withdrawal, error)
	Resolve(ctx context.Context, id uuid.UUID, decision model.WithdrawalStatus) (*model.Withdrawal, error)
	List(ctx context.Context, status model.WithdrawalStatus) ([]*model.Withdrawal, error)
}

type WithdrawalRepository interface {
	CreateWithdrawal(ctx context.Context, w *model.Withdrawal, minBalance, minReferrals int) error
	ResolveWithdrawal(ctx context.Context, id uuid.UUID, decision model.WithdrawalStatus, now time.Time) (*model.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status model.WithdrawalStatus) ([]*model.Withdrawal, error)
}

// Notifier delivers a best-effort message to the operator channel. Failures
// are logged, never retried, and never fail the originating request.
type Notifier interface {
	NotifyWithdrawal(w *model.Withdrawal) error
}

// Publisher pushes withdrawal events to live admin subscribers.
type Publisher interface {
	Publish(w *model.Withdrawal)
}
