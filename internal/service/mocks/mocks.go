package mocks

import (
	"context"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateIfAbsent(ctx context.Context, acc *model.Account) (bool, error) {
	args := m.Called(ctx, acc)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) AttachReferral(ctx context.Context, telegramID, referrerID int64, bonus int) error {
	args := m.Called(ctx, telegramID, referrerID, bonus)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) GetAccountReferrals(ctx context.Context, telegramID int64) ([]*model.AccountReferral, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccountReferral), args.Error(1)
}

type MockRewardRepository struct {
	mock.Mock
}

func (m *MockRewardRepository) CreditChannel(ctx context.Context, telegramID int64, rule policy.Rule, now time.Time) (int, error) {
	args := m.Called(ctx, telegramID, rule, now)
	return args.Int(0), args.Error(1)
}

func (m *MockRewardRepository) RecordPostback(ctx context.Context, txn *model.Transaction, rule policy.Rule) (int, error) {
	args := m.Called(ctx, txn, rule)
	return args.Int(0), args.Error(1)
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) CreateWithdrawal(ctx context.Context, w *model.Withdrawal, minBalance, minReferrals int) error {
	args := m.Called(ctx, w, minBalance, minReferrals)
	if args.Error(0) == nil {
		// Mirror the real repository, which marks the record pending on success.
		w.Status = model.WithdrawalPending
	}
	return args.Error(0)
}

func (m *MockWithdrawalRepository) ResolveWithdrawal(ctx context.Context, id uuid.UUID, decision model.WithdrawalStatus, now time.Time) (*model.Withdrawal, error) {
	args := m.Called(ctx, id, decision, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ListWithdrawals(ctx context.Context, status model.WithdrawalStatus) ([]*model.Withdrawal, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Withdrawal), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyWithdrawal(w *model.Withdrawal) error {
	args := m.Called(w)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(w *model.Withdrawal) {
	m.Called(w)
}
