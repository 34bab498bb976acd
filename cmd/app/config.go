package main

import (
	"fmt"
	"strings"
	"time"

	"adreward_miniapp/internal/repository"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`
	Admin        AdminConfig        `yaml:"admin"`
	Notifier     NotifierConfig     `yaml:"notifier"`

	Rewards    RewardsConfig    `yaml:"rewards"`
	Withdrawal WithdrawalConfig `yaml:"withdrawal"`
	Postback   PostbackConfig   `yaml:"postback"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
}

type AdminConfig struct {
	Token string `yaml:"token"`
}

type NotifierConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatId"`
	Debug    bool   `yaml:"debug"`
}

type ChannelConfig struct {
	Amount   int           `yaml:"amount"`
	Cooldown time.Duration `yaml:"cooldown"`
	DailyCap int           `yaml:"dailyCap"`
	Mode     string        `yaml:"mode"`
}

type RewardsConfig struct {
	Ad            ChannelConfig `yaml:"ad"`
	Bonus         ChannelConfig `yaml:"bonus"`
	Postback      ChannelConfig `yaml:"postback"`
	ReferralBonus int           `yaml:"referralBonus"`
}

type WithdrawalConfig struct {
	MinBalance   int `yaml:"minBalance"`
	MinReferrals int `yaml:"minReferrals"`
	MinAmount    int `yaml:"minAmount"`
}

type PostbackConfig struct {
	// Secrets maps a network name in the callback path to its shared secret.
	Secrets map[string]string `yaml:"secrets"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Defaults mirror the original deployment: 1 point per ad, 2 points per
// referral, withdrawals from 1000 points and 20 referrals.
func setDefaults() {
	viper.SetDefault("rewards.ad.amount", 1)
	viper.SetDefault("rewards.ad.cooldown", "5m")
	viper.SetDefault("rewards.ad.dailyCap", 20)
	viper.SetDefault("rewards.ad.mode", "credit")

	viper.SetDefault("rewards.bonus.amount", 2)
	viper.SetDefault("rewards.bonus.cooldown", "10m")
	viper.SetDefault("rewards.bonus.dailyCap", 5)
	viper.SetDefault("rewards.bonus.mode", "credit")

	viper.SetDefault("rewards.postback.cooldown", "0s")
	viper.SetDefault("rewards.postback.dailyCap", 0)
	viper.SetDefault("rewards.postback.mode", "credit")

	viper.SetDefault("rewards.referralBonus", 2)

	viper.SetDefault("withdrawal.minBalance", 1000)
	viper.SetDefault("withdrawal.minReferrals", 20)
	viper.SetDefault("withdrawal.minAmount", 1000)

	viper.SetDefault("logLevel", "info")
}

// Validate refuses to let the process serve with a non-functional ledger:
// a missing secret must fail startup, not produce confusing 500s later.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("database host, user and name are required")
	}
	if c.TelegramAuth.TelegramBotToken == "" && !c.TelegramAuth.DebugMode {
		return fmt.Errorf("telegramAuth.telegramBotToken is required")
	}
	if c.Admin.Token == "" {
		return fmt.Errorf("admin.token is required")
	}
	if c.Notifier.Enabled {
		if c.Notifier.BotToken == "" {
			return fmt.Errorf("notifier.botToken is required when the notifier is enabled")
		}
		if c.Notifier.ChatID == 0 {
			return fmt.Errorf("notifier.chatId is required when the notifier is enabled")
		}
	}
	for network, secret := range c.Postback.Secrets {
		if secret == "" {
			return fmt.Errorf("postback secret for network %q is empty", network)
		}
	}
	return nil
}
