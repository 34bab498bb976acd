package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/repository"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"
)

type AccountService struct {
	repo          AccountRepository
	referralBonus int
}

func NewAccountService(repo AccountRepository, cfg RewardConfig) *AccountService {
	return &AccountService{
		repo:          repo,
		referralBonus: cfg.ReferralBonus,
	}
}

// Sync registers the account on first contact and tries to attach the
// referral hint when, and only when, this call actually created the account.
// A retried sync finds created=false and never re-enters the attach path; a
// concurrent duplicate that does reach it is stopped by the referred_by
// re-check inside the repository transaction.
func (s *AccountService) Sync(ctx context.Context, acc *model.Account, referralHint string) (bool, error) {
	created, err := s.repo.CreateIfAbsent(ctx, acc)
	if err != nil {
		return false, fmt.Errorf("failed to sync account: %w", err)
	}

	if !created || referralHint == "" {
		return created, nil
	}

	log := logger.Logger()

	referrerID, err := strconv.ParseInt(referralHint, 10, 64)
	if err != nil {
		log.Info("ignoring malformed referral hint",
			zap.String("hint", referralHint),
			zap.Int64("telegram_id", acc.TelegramID))
		return created, nil
	}

	if referrerID == acc.TelegramID {
		log.Info("ignoring self referral", zap.Int64("telegram_id", acc.TelegramID))
		return created, nil
	}

	err = s.repo.AttachReferral(ctx, acc.TelegramID, referrerID, s.referralBonus)
	if err != nil {
		// A missing referrer or a lost race with another sync call must not
		// fail the registration itself.
		if errors.Is(err, repository.ErrReferrerNotFound) ||
			errors.Is(err, repository.ErrAlreadyReferred) ||
			errors.Is(err, repository.ErrSelfReferral) {
			log.Info("referral not attached",
				zap.Int64("telegram_id", acc.TelegramID),
				zap.Int64("referrer_id", referrerID),
				zap.Error(err))
			return created, nil
		}
		return created, fmt.Errorf("failed to attach referral: %w", err)
	}

	return created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	acc, err := s.repo.GetAccount(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func (s *AccountService) GetReferrals(ctx context.Context, telegramID int64) ([]*model.AccountReferral, error) {
	refs, err := s.repo.GetAccountReferrals(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	return refs, nil
}
