package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/repository"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/google/uuid"
)

type WithdrawalService struct {
	repo     WithdrawalRepository
	cfg      WithdrawalConfig
	notifier Notifier
	feed     Publisher
	now      func() time.Time
}

func NewWithdrawalService(repo WithdrawalRepository, cfg WithdrawalConfig, notifier Notifier, feed Publisher) *WithdrawalService {
	return &WithdrawalService{
		repo:     repo,
		cfg:      cfg,
		notifier: notifier,
		feed:     feed,
		now:      time.Now,
	}
}

// Submit validates the request, debits the balance and inserts the pending
// record in one transaction, then notifies the operator outside of it.
func (s *WithdrawalService) Submit(ctx context.Context, telegramID int64, amount int, method, destination string) (*model.Withdrawal, error) {
	if amount < s.cfg.MinAmount || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w := &model.Withdrawal{
		ID:           uuid.New(),
		TelegramID:   telegramID,
		AmountPoints: amount,
		Method:       method,
		Destination:  destination,
		RequestedAt:  s.now().UTC(),
	}

	err := s.repo.CreateWithdrawal(ctx, w, s.cfg.MinBalance, s.cfg.MinReferrals)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrBelowMinimumBalance):
			return nil, ErrBelowMinimumBalance
		case errors.Is(err, repository.ErrBelowMinimumReferrals):
			return nil, ErrBelowMinimumReferral
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	go s.announce(w)

	return w, nil
}

// announce is fire-and-forget: the withdrawal is already committed, delivery
// failures are only logged.
func (s *WithdrawalService) announce(w *model.Withdrawal) {
	log := logger.Logger()

	if s.notifier != nil {
		if err := s.notifier.NotifyWithdrawal(w); err != nil {
			log.Error("failed to notify operator about withdrawal",
				zap.String("withdrawal_id", w.ID.String()),
				zap.Error(err))
		}
	}

	if s.feed != nil {
		s.feed.Publish(w)
	}
}

func (s *WithdrawalService) Resolve(ctx context.Context, id uuid.UUID, decision model.WithdrawalStatus) (*model.Withdrawal, error) {
	if decision != model.WithdrawalApproved && decision != model.WithdrawalRejected {
		return nil, ErrInvalidDecision
	}

	w, err := s.repo.ResolveWithdrawal(ctx, id, decision, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWithdrawalNotFound):
			return nil, ErrWithdrawalNotFound
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to resolve withdrawal: %w", err)
	}

	return w, nil
}

func (s *WithdrawalService) List(ctx context.Context, status model.WithdrawalStatus) ([]*model.Withdrawal, error) {
	list, err := s.repo.ListWithdrawals(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return list, nil
}
