package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertTransactionQuery = `INSERT INTO transactions (received_at,reward_amount,source,telegram_id,transaction_id) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (transaction_id) DO NOTHING`
	creditPostbackQuery    = `UPDATE accounts SET balance = balance + $1, total_ads_watched = total_ads_watched + 1, postback_today = $2, postback_date = $3, last_postback_time = $4 WHERE telegram_id = $5`
)

func postbackRule(amount int) policy.Rule {
	return policy.Rule{
		Channel: model.ChannelPostback,
		Amount:  amount,
		Mode:    policy.CreditImmediate,
	}
}

func TestRepository_RecordPostback(t *testing.T) {
	repo, mock := newTestRepository(t)

	received := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	txn := &model.Transaction{
		TransactionID: "txn-1",
		TelegramID:    42,
		Source:        "adnet",
		RewardAmount:  5,
		ReceivedAt:    received,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
		WithArgs(received, 5, "adnet", int64(42), "txn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(lockAccountQuery)).
		WithArgs(int64(42)).
		WillReturnRows(accountRows(42, 100, 0))
	mock.ExpectExec(regexp.QuoteMeta(creditPostbackQuery)).
		WithArgs(5, 1, "2026-08-30", received, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	balance, err := repo.RecordPostback(context.Background(), txn, postbackRule(5))

	require.NoError(t, err)
	assert.Equal(t, 105, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecordPostbackDuplicate(t *testing.T) {
	repo, mock := newTestRepository(t)

	txn := &model.Transaction{
		TransactionID: "txn-1",
		TelegramID:    42,
		Source:        "adnet",
		RewardAmount:  5,
		ReceivedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
		WithArgs(txn.ReceivedAt, 5, "adnet", int64(42), "txn-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.RecordPostback(context.Background(), txn, postbackRule(5))

	assert.ErrorIs(t, err, ErrTransactionExists)
	// The replay never reaches the account row: no credit statement ran.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecordPostbackPolicyRejectionRollsBack(t *testing.T) {
	repo, mock := newTestRepository(t)

	received := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	lastCredit := received.Add(-time.Minute)
	txn := &model.Transaction{
		TransactionID: "txn-2",
		TelegramID:    42,
		Source:        "adnet",
		RewardAmount:  5,
		ReceivedAt:    received,
	}
	rule := postbackRule(5)
	rule.Cooldown = 10 * time.Minute

	rows := sqlmock.NewRows(accountColumns).AddRow(
		int64(42), "Alice", "alice", 100, 3, 0, nil,
		0, "", nil,
		0, "", nil,
		3, "2026-08-30", lastCredit,
		received, received)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
		WithArgs(received, 5, "adnet", int64(42), "txn-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(lockAccountQuery)).
		WithArgs(int64(42)).
		WillReturnRows(rows)
	mock.ExpectRollback()

	_, err := repo.RecordPostback(context.Background(), txn, rule)

	// The dedup insert rolls back with the rejection, so the network can
	// retry the same transaction id later.
	assert.ErrorIs(t, err, policy.ErrCooldownActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
