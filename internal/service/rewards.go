package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"
	"adreward_miniapp/internal/repository"
)

type RewardService struct {
	repo  RewardRepository
	rules map[model.Channel]policy.Rule
	now   func() time.Time
}

func NewRewardService(repo RewardRepository, cfg RewardConfig) *RewardService {
	return &RewardService{
		repo:  repo,
		rules: cfg.Rules,
		now:   time.Now,
	}
}

type ClaimResult struct {
	Reward     int
	NewBalance int
}

// Claim runs one client-reported view through the channel's admission rule.
// Client claims have no dedup key; the cooldown and daily cap are the only
// at-most-once guarantee this path carries.
func (s *RewardService) Claim(ctx context.Context, telegramID int64, channel model.Channel) (*ClaimResult, error) {
	rule, ok := s.rules[channel]
	if !ok {
		return nil, fmt.Errorf("no reward rule configured for channel %q", channel)
	}

	newBalance, err := s.repo.CreditChannel(ctx, telegramID, rule, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	reward := rule.Amount
	if rule.Mode == policy.CountOnly {
		reward = 0
	}

	return &ClaimResult{Reward: reward, NewBalance: newBalance}, nil
}

// HandlePostback credits one server-verified ad completion. The caller has
// already checked the network signature; the repository guarantees the
// transaction id is honored at most once.
func (s *RewardService) HandlePostback(ctx context.Context, txn *model.Transaction) (int, error) {
	rule, ok := s.rules[model.ChannelPostback]
	if !ok {
		return 0, fmt.Errorf("no reward rule configured for channel %q", model.ChannelPostback)
	}

	// The network reports how much the completed action is worth; the
	// configured rule contributes the cooldown and cap gates.
	rule.Amount = txn.RewardAmount
	rule.Mode = policy.CreditImmediate

	newBalance, err := s.repo.RecordPostback(ctx, txn, rule)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionExists):
			return 0, ErrDuplicateTransaction
		case errors.Is(err, repository.ErrNotFound):
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	return newBalance, nil
}
