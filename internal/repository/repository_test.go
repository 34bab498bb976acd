package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Repository{db: sqlx.NewDb(db, "sqlmock")}, mock
}

var accountColumns = []string{
	"telegram_id", "first_name", "username", "balance", "total_ads_watched",
	"referrals", "referred_by",
	"ad_today", "ad_date", "last_ad_time",
	"bonus_today", "bonus_date", "last_bonus_time",
	"postback_today", "postback_date", "last_postback_time",
	"registration_date", "last_auth_date",
}

func accountRows(telegramID int64, balance, referrals int) *sqlmock.Rows {
	joined := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(accountColumns).AddRow(
		telegramID, "Alice", "alice", balance, 0, referrals, nil,
		0, "", nil,
		0, "", nil,
		0, "", nil,
		joined, joined)
}
