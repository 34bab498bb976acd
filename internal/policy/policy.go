// Package policy holds the pure reward-admission logic. It performs no I/O:
// the repository reads channel state inside a transaction, asks Evaluate for
// a decision and applies the returned deltas in the same transaction.
package policy

import (
	"errors"
	"time"

	"adreward_miniapp/internal/model"
)

var (
	ErrCooldownActive    = errors.New("cooldown has not expired since the last reward")
	ErrDailyLimitReached = errors.New("daily reward limit reached")
)

// Mode settles whether a channel claim moves points immediately or only
// counts the view, leaving real crediting to a verified postback.
type Mode string

const (
	CreditImmediate Mode = "credit"
	CountOnly       Mode = "count"
)

// Rule is the per-channel configuration a claim is judged against.
type Rule struct {
	Channel  model.Channel
	Amount   int
	Cooldown time.Duration
	DailyCap int
	Mode     Mode
}

// Decision carries the state deltas for an admitted claim.
type Decision struct {
	CreditAmount  int
	NewTodayCount int
	NewCountDate  string
	NewLastCredit time.Time
}

// All daily counters reset at UTC midnight so every user rolls over at the
// same wall-clock moment.
const dayFormat = "2006-01-02"

// DayKey returns the calendar-day key used for daily counters.
func DayKey(now time.Time) string {
	return now.UTC().Format(dayFormat)
}

// Evaluate decides whether a claim on one channel is admissible right now.
// The stored counter is treated as zero when its date is not today; the
// caller persists the returned date together with the counter, so the reset
// happens inside the same transaction as the read.
func Evaluate(state model.ChannelState, rule Rule, now time.Time) (*Decision, error) {
	if state.LastCredit != nil && now.Sub(*state.LastCredit) < rule.Cooldown {
		return nil, ErrCooldownActive
	}

	today := DayKey(now)
	todayCount := state.TodayCount
	if state.CountDate != today {
		todayCount = 0
	}

	if rule.DailyCap > 0 && todayCount >= rule.DailyCap {
		return nil, ErrDailyLimitReached
	}

	credit := rule.Amount
	if rule.Mode == CountOnly {
		credit = 0
	}

	return &Decision{
		CreditAmount:  credit,
		NewTodayCount: todayCount + 1,
		NewCountDate:  today,
		NewLastCredit: now,
	}, nil
}
