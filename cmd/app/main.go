package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"adreward_miniapp/internal/api"
	"adreward_miniapp/internal/middleware"
	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"
	"adreward_miniapp/internal/repository"
	"adreward_miniapp/internal/service"
	"adreward_miniapp/pkg/auth"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	rewardConfig := service.RewardConfig{
		Rules: map[model.Channel]policy.Rule{
			model.ChannelAd:       channelRule(model.ChannelAd, cfg.Rewards.Ad),
			model.ChannelBonus:    channelRule(model.ChannelBonus, cfg.Rewards.Bonus),
			model.ChannelPostback: channelRule(model.ChannelPostback, cfg.Rewards.Postback),
		},
		ReferralBonus: cfg.Rewards.ReferralBonus,
	}
	withdrawalConfig := service.WithdrawalConfig{
		MinBalance:   cfg.Withdrawal.MinBalance,
		MinReferrals: cfg.Withdrawal.MinReferrals,
		MinAmount:    cfg.Withdrawal.MinAmount,
	}

	var notifier service.Notifier
	if cfg.Notifier.Enabled {
		tn, err := service.NewTelegramNotifier(service.NotifierConfig{
			BotToken: cfg.Notifier.BotToken,
			ChatID:   cfg.Notifier.ChatID,
			Debug:    cfg.Notifier.Debug,
		})
		if err != nil {
			zapLogger.Fatal("Failed to initialize notifier", zap.Error(err))
		}
		notifier = tn
	}

	feed := api.NewWithdrawalFeed()

	accountService := service.NewAccountService(repo, rewardConfig)
	rewardService := service.NewRewardService(repo, rewardConfig)
	withdrawalService := service.NewWithdrawalService(repo, withdrawalConfig, notifier, feed)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	adminAuth := middleware.NewAdminAuth(cfg.Admin.Token)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, accountService, telegramAuth)
	api.NewRewardRoutes(a, rewardService, telegramAuth)
	api.NewPostbackRoutes(a, rewardService, cfg.Postback.Secrets)
	api.NewWithdrawalRoutes(a, withdrawalService, telegramAuth, adminAuth, feed)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}

func channelRule(ch model.Channel, cfg ChannelConfig) policy.Rule {
	mode := policy.CreditImmediate
	if cfg.Mode == string(policy.CountOnly) {
		mode = policy.CountOnly
	}
	return policy.Rule{
		Channel:  ch,
		Amount:   cfg.Amount,
		Cooldown: cfg.Cooldown,
		DailyCap: cfg.DailyCap,
		Mode:     mode,
	}
}
