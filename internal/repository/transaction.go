package repository

import (
	"context"
	"fmt"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// RecordPostback accepts one ad-network confirmation at most once. The dedup
// insert and the account credit commit together: a crash can never leave the
// transaction recorded but the balance untouched, or the reverse. A policy
// rejection rolls the whole attempt back, so the network may retry later.
func (r *Repository) RecordPostback(ctx context.Context, txn *model.Transaction, rule policy.Rule) (int, error) {
	var newBalance int
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("transactions").
			SetMap(map[string]interface{}{
				"transaction_id": txn.TransactionID,
				"telegram_id":    txn.TelegramID,
				"source":         txn.Source,
				"reward_amount":  txn.RewardAmount,
				"received_at":    txn.ReceivedAt,
			}).
			Suffix("ON CONFLICT (transaction_id) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build transaction insert query: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrTransactionExists
		}

		acc, err := lockAccount(ctx, tx, txn.TelegramID)
		if err != nil {
			return err
		}

		balance, err := creditChannelWithTx(ctx, tx, acc, rule, txn.ReceivedAt)
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
