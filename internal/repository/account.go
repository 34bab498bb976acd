package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type account struct {
	TelegramID      int64  `db:"telegram_id"`
	FirstName       string `db:"first_name"`
	Username        string `db:"username"`
	Balance         int    `db:"balance"`
	TotalAdsWatched int    `db:"total_ads_watched"`
	Referrals       int    `db:"referrals"`
	ReferredBy      *int64 `db:"referred_by"`

	AdToday     int        `db:"ad_today"`
	AdDate      string     `db:"ad_date"`
	LastAdTime  *time.Time `db:"last_ad_time"`
	BonusToday  int        `db:"bonus_today"`
	BonusDate   string     `db:"bonus_date"`
	LastBonus   *time.Time `db:"last_bonus_time"`
	PbToday     int        `db:"postback_today"`
	PbDate      string     `db:"postback_date"`
	LastPbTime  *time.Time `db:"last_postback_time"`

	RegistrationDate time.Time `db:"registration_date"`
	AuthDate         time.Time `db:"last_auth_date"`
}

func (a *account) toModel() *model.Account {
	return &model.Account{
		TelegramID:      a.TelegramID,
		FirstName:       a.FirstName,
		Username:        a.Username,
		Balance:         a.Balance,
		TotalAdsWatched: a.TotalAdsWatched,
		Referrals:       a.Referrals,
		ReferredBy:      a.ReferredBy,
		Channels: map[model.Channel]model.ChannelState{
			model.ChannelAd:       {TodayCount: a.AdToday, CountDate: a.AdDate, LastCredit: a.LastAdTime},
			model.ChannelBonus:    {TodayCount: a.BonusToday, CountDate: a.BonusDate, LastCredit: a.LastBonus},
			model.ChannelPostback: {TodayCount: a.PbToday, CountDate: a.PbDate, LastCredit: a.LastPbTime},
		},
		RegistrationDate: a.RegistrationDate,
		AuthDate:         a.AuthDate,
	}
}

func (a *account) channelState(ch model.Channel) model.ChannelState {
	switch ch {
	case model.ChannelBonus:
		return model.ChannelState{TodayCount: a.BonusToday, CountDate: a.BonusDate, LastCredit: a.LastBonus}
	case model.ChannelPostback:
		return model.ChannelState{TodayCount: a.PbToday, CountDate: a.PbDate, LastCredit: a.LastPbTime}
	default:
		return model.ChannelState{TodayCount: a.AdToday, CountDate: a.AdDate, LastCredit: a.LastAdTime}
	}
}

// Column triples per reward channel. Values come from this fixed table only,
// never from request input.
type channelColumns struct {
	today string
	date  string
	last  string
}

var channelCols = map[model.Channel]channelColumns{
	model.ChannelAd:       {today: "ad_today", date: "ad_date", last: "last_ad_time"},
	model.ChannelBonus:    {today: "bonus_today", date: "bonus_date", last: "last_bonus_time"},
	model.ChannelPostback: {today: "postback_today", date: "postback_date", last: "last_postback_time"},
}

// CreateIfAbsent registers the account on first contact and refreshes the
// last-known name on every later one. A single upsert keeps two concurrent
// first syncs from racing: exactly one of them observes created=true.
func (r *Repository) CreateIfAbsent(ctx context.Context, acc *model.Account) (bool, error) {
	var created bool
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("accounts").
			SetMap(map[string]interface{}{
				"telegram_id":       acc.TelegramID,
				"first_name":        acc.FirstName,
				"username":          acc.Username,
				"balance":           0,
				"total_ads_watched": 0,
				"referrals":         0,
				"registration_date": acc.RegistrationDate,
				"last_auth_date":    acc.AuthDate,
			}).
			Suffix(`ON CONFLICT (telegram_id) DO UPDATE
				SET first_name = EXCLUDED.first_name,
				    username = EXCLUDED.username,
				    last_auth_date = EXCLUDED.last_auth_date
				RETURNING (xmax = 0) AS created`).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build account upsert query: %w", err)
		}

		err = tx.GetContext(ctx, &created, query, args...)
		if err != nil {
			return fmt.Errorf("failed to upsert account: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// AttachReferral links a freshly created account to its referrer and pays the
// bonus, all inside one transaction. The referred_by re-check under the row
// lock is what keeps a retried sync from crediting the referrer twice.
func (r *Repository) AttachReferral(ctx context.Context, telegramID, referrerID int64, bonus int) error {
	if telegramID == referrerID {
		return ErrSelfReferral
	}
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var referredBy *int64
		query, args, err := squirrel.
			Select("referred_by").
			From("accounts").
			Where(squirrel.Eq{"telegram_id": telegramID}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &referredBy, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if referredBy != nil {
			return ErrAlreadyReferred
		}

		updateQuery, updateArgs, err := squirrel.
			Update("accounts").
			Set("referrals", squirrel.Expr("referrals + 1")).
			Set("balance", squirrel.Expr("balance + ?", bonus)).
			Where(squirrel.Eq{"telegram_id": referrerID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrReferrerNotFound
		}

		attachQuery, attachArgs, err := squirrel.
			Update("accounts").
			Set("referred_by", referrerID).
			Where(squirrel.Eq{"telegram_id": telegramID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, attachQuery, attachArgs...)
		if err != nil {
			return fmt.Errorf("failed to attach referral: %w", err)
		}
		return nil
	})
}

// CreditChannel applies one reward claim: the counter read, the day reset,
// the policy decision and every delta happen under the same row lock.
func (r *Repository) CreditChannel(ctx context.Context, telegramID int64, rule policy.Rule, now time.Time) (int, error) {
	var newBalance int
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		acc, err := lockAccount(ctx, tx, telegramID)
		if err != nil {
			return err
		}

		balance, err := creditChannelWithTx(ctx, tx, acc, rule, now)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetAccount reads the account outside any transaction, for display only.
func (r *Repository) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	var acc account
	query, args, err := squirrel.
		Select("*").
		From("accounts").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &acc, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return acc.toModel(), nil
}

func (r *Repository) GetAccountReferrals(ctx context.Context, telegramID int64) ([]*model.AccountReferral, error) {
	query, args, err := squirrel.
		Select("telegram_id", "username", "referrals", "registration_date").
		From("accounts").
		Where(squirrel.Eq{"referred_by": telegramID}).
		OrderBy("registration_date DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []struct {
		TelegramID int64     `db:"telegram_id"`
		Username   string    `db:"username"`
		Referrals  int       `db:"referrals"`
		JoinedAt   time.Time `db:"registration_date"`
	}
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get account referrals: %w", err)
	}

	refs := make([]*model.AccountReferral, len(rows))
	for i, row := range rows {
		refs[i] = &model.AccountReferral{
			TelegramID:       row.TelegramID,
			TelegramUsername: row.Username,
			Referrals:        row.Referrals,
			JoinedAt:         row.JoinedAt,
		}
	}

	return refs, nil
}

func lockAccount(ctx context.Context, tx *sqlx.Tx, telegramID int64) (*account, error) {
	var acc account
	query, args, err := squirrel.
		Select("*").
		From("accounts").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &acc, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// creditChannelWithTx runs the policy over already-locked state and applies
// the admitted deltas. Callers that gate on other writes (postback recording)
// share the same transaction.
func creditChannelWithTx(ctx context.Context, tx *sqlx.Tx, acc *account, rule policy.Rule, now time.Time) (int, error) {
	decision, err := policy.Evaluate(acc.channelState(rule.Channel), rule, now)
	if err != nil {
		return 0, err
	}

	cols := channelCols[rule.Channel]
	query, args, err := squirrel.
		Update("accounts").
		Set("balance", squirrel.Expr("balance + ?", decision.CreditAmount)).
		Set("total_ads_watched", squirrel.Expr("total_ads_watched + 1")).
		Set(cols.today, decision.NewTodayCount).
		Set(cols.date, decision.NewCountDate).
		Set(cols.last, decision.NewLastCredit).
		Where(squirrel.Eq{"telegram_id": acc.TelegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to apply channel credit: %w", err)
	}

	return acc.Balance + decision.CreditAmount, nil
}
