package api

import (
	"errors"
	"net/http"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"
	"adreward_miniapp/internal/service"
	"adreward_miniapp/pkg/auth"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type rewardRoutes struct {
	rs service.RewardServiceI
	a  *auth.TelegramAuth
}

func NewRewardRoutes(handler *gin.RouterGroup, rs service.RewardServiceI, a *auth.TelegramAuth) {
	r := &rewardRoutes{rs: rs, a: a}
	h := handler.Group("/rewards")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/claim", r.claim(model.ChannelAd))
		h.POST("/claim-bonus", r.claim(model.ChannelBonus))
	}
}

type ClaimResponse struct {
	Success bool `json:"success"`
	Reward  int  `json:"reward"`
	Balance int  `json:"balance"`
}

func (r *rewardRoutes) claim(channel model.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		user, ok := auth.UserFromContext(c)
		if !ok {
			log.Error("telegram user data not found in context")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		result, err := r.rs.Claim(c.Request.Context(), user.ID, channel)
		if err != nil {
			switch {
			case errors.Is(err, policy.ErrCooldownActive):
				c.JSON(http.StatusBadRequest, gin.H{"error": "please wait before watching the next ad"})
			case errors.Is(err, policy.ErrDailyLimitReached):
				c.JSON(http.StatusBadRequest, gin.H{"error": "daily ad limit reached, come back tomorrow"})
			case errors.Is(err, service.ErrUserNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "account not found, call sync first"})
			default:
				log.Error("failed to process claim",
					zap.String("channel", string(channel)),
					zap.Int64("telegram_id", user.ID),
					zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process claim"})
			}
			return
		}

		c.JSON(http.StatusOK, ClaimResponse{
			Success: true,
			Reward:  result.Reward,
			Balance: result.NewBalance,
		})
	}
}
