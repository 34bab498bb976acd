package model

import "time"

// Channel is a distinct reward-earning path with its own cooldown and
// daily cap. Channels never share counters.
type Channel string

const (
	// ChannelAd is the baseline client-reported ad claim.
	ChannelAd Channel = "ad"
	// ChannelBonus is the secondary ad-network claim.
	ChannelBonus Channel = "bonus"
	// ChannelPostback is the server-verified ad-network confirmation.
	ChannelPostback Channel = "postback"
)

// ChannelState is the per-channel slice of an account the reward policy
// decides over.
type ChannelState struct {
	TodayCount int
	CountDate  string
	LastCredit *time.Time
}

type Account struct {
	TelegramID      int64
	FirstName       string
	Username        string
	Balance         int
	TotalAdsWatched int
	Referrals       int
	ReferredBy      *int64

	Channels map[Channel]ChannelState

	RegistrationDate time.Time
	AuthDate         time.Time
}

type AccountReferral struct {
	TelegramID       int64
	TelegramUsername string
	Referrals        int
	JoinedAt         time.Time
}
