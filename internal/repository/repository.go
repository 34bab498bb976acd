package repository

import (
	"context"
	"fmt"
	"time"

	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrReferrerNotFound  = errors.New("referrer not found")
	ErrSelfReferral      = errors.New("account cannot refer itself")
	ErrAlreadyReferred   = errors.New("account already has a referrer")
	ErrTransactionExists = errors.New("transaction already recorded")

	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrBelowMinimumBalance   = errors.New("balance below withdrawal minimum")
	ErrBelowMinimumReferrals = errors.New("referral count below withdrawal minimum")

	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrAlreadyProcessed   = errors.New("withdrawal already processed")
)

const (
	txAttempts     = 3
	txRetryBackoff = 50 * time.Millisecond
)

type Repository struct {
	db *sqlx.DB
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Transaction runs t atomically. The closure must be a pure read-modify-write
// over the tx: on serialization failure or deadlock the whole body is re-run
// from a fresh read, so no state may leak out of a failed attempt.
func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = r.runTransaction(ctx, t)
		if err == nil || !isRetryable(err) {
			return err
		}

		logger.Logger().Warn("retrying transaction after transient error",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		select {
		case <-time.After(txRetryBackoff << attempt):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (r *Repository) runTransaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func New(cfg Config) (*Repository, error) {
	url := cfg.GetDatabaseURL()
	db, err := sqlx.Connect("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully")

	return &Repository{db: db}, nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}
