package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adreward_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type withdrawal struct {
	ID           uuid.UUID  `db:"id"`
	TelegramID   int64      `db:"telegram_id"`
	Username     string     `db:"username"`
	AmountPoints int        `db:"amount_points"`
	Method       string     `db:"method"`
	Destination  string     `db:"destination"`
	Status       string     `db:"status"`
	RequestedAt  time.Time  `db:"requested_at"`
	ProcessedAt  *time.Time `db:"processed_at"`
}

func (w *withdrawal) toModel() *model.Withdrawal {
	return &model.Withdrawal{
		ID:           w.ID,
		TelegramID:   w.TelegramID,
		Username:     w.Username,
		AmountPoints: w.AmountPoints,
		Method:       w.Method,
		Destination:  w.Destination,
		Status:       model.WithdrawalStatus(w.Status),
		RequestedAt:  w.RequestedAt,
		ProcessedAt:  w.ProcessedAt,
	}
}

// CreateWithdrawal checks every eligibility gate against the locked balance
// and debits it in the same transaction as the record insert, so two
// concurrent submissions cannot both pass against a stale read and the
// balance can never diverge from the outstanding-request total.
func (r *Repository) CreateWithdrawal(ctx context.Context, w *model.Withdrawal, minBalance, minReferrals int) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		acc, err := lockAccount(ctx, tx, w.TelegramID)
		if err != nil {
			return err
		}

		// Gate order is deliberate and matches the deployed service: the
		// minimum-balance check runs first, so a drained balance reports
		// ErrBelowMinimumBalance even when the amount also exceeds it.
		if acc.Balance < minBalance {
			return ErrBelowMinimumBalance
		}
		if acc.Referrals < minReferrals {
			return ErrBelowMinimumReferrals
		}
		if w.AmountPoints > acc.Balance {
			return ErrInsufficientBalance
		}

		debitQuery, debitArgs, err := squirrel.
			Update("accounts").
			Set("balance", squirrel.Expr("balance - ?", w.AmountPoints)).
			Where(squirrel.Eq{"telegram_id": w.TelegramID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, debitQuery, debitArgs...)
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}

		insertQuery, insertArgs, err := squirrel.
			Insert("withdrawals").
			SetMap(map[string]interface{}{
				"id":            w.ID,
				"telegram_id":   w.TelegramID,
				"username":      acc.Username,
				"amount_points": w.AmountPoints,
				"method":        w.Method,
				"destination":   w.Destination,
				"status":        string(model.WithdrawalPending),
				"requested_at":  w.RequestedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, insertQuery, insertArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert withdrawal: %w", err)
		}

		w.Username = acc.Username
		w.Status = model.WithdrawalPending
		return nil
	})
}

// ResolveWithdrawal moves a pending record to its terminal status. Rejection
// credits the debited points back inside the same transaction; approval moves
// no points. A non-pending record reports ErrAlreadyProcessed untouched.
func (r *Repository) ResolveWithdrawal(ctx context.Context, id uuid.UUID, decision model.WithdrawalStatus, now time.Time) (*model.Withdrawal, error) {
	var resolved *model.Withdrawal
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var w withdrawal
		query, args, err := squirrel.
			Select("*").
			From("withdrawals").
			Where(squirrel.Eq{"id": id}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &w, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWithdrawalNotFound
			}
			return err
		}

		if w.Status != string(model.WithdrawalPending) {
			return ErrAlreadyProcessed
		}

		updateQuery, updateArgs, err := squirrel.
			Update("withdrawals").
			Set("status", string(decision)).
			Set("processed_at", now).
			Where(squirrel.Eq{"id": id}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to update withdrawal: %w", err)
		}

		if decision == model.WithdrawalRejected {
			refundQuery, refundArgs, err := squirrel.
				Update("accounts").
				Set("balance", squirrel.Expr("balance + ?", w.AmountPoints)).
				Where(squirrel.Eq{"telegram_id": w.TelegramID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, refundQuery, refundArgs...)
			if err != nil {
				return fmt.Errorf("failed to refund balance: %w", err)
			}
		}

		w.Status = string(decision)
		w.ProcessedAt = &now
		resolved = w.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *Repository) ListWithdrawals(ctx context.Context, status model.WithdrawalStatus) ([]*model.Withdrawal, error) {
	builder := squirrel.
		Select("*").
		From("withdrawals").
		OrderBy("requested_at ASC").
		PlaceholderFormat(squirrel.Dollar)
	if status != "" {
		builder = builder.Where(squirrel.Eq{"status": string(status)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []withdrawal
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	list := make([]*model.Withdrawal, len(rows))
	for i := range rows {
		list[i] = rows[i].toModel()
	}
	return list, nil
}
