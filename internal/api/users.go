package api

import (
	"net/http"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/service"
	"adreward_miniapp/pkg/auth"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type userRoutes struct {
	as service.AccountServiceI
	a  *auth.TelegramAuth
}

func NewUserRoutes(handler *gin.RouterGroup, as service.AccountServiceI, a *auth.TelegramAuth) {
	r := &userRoutes{as: as, a: a}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/sync", r.Sync)
		h.GET("/me", r.GetMe)
		h.GET("/me/referrals", r.GetReferrals)
	}
}

type SyncRequest struct {
	StartParam string `json:"start_param"`
}

type SyncResponse struct {
	Success bool `json:"success"`
	Created bool `json:"created"`
}

func (r *userRoutes) Sync(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// The body may be empty; the hint is optional either way.
	var req SyncRequest
	_ = c.ShouldBindJSON(&req)

	hint := user.StartParam
	if hint == "" {
		hint = req.StartParam
	}

	acc := &model.Account{
		TelegramID:       user.ID,
		FirstName:        user.FirstName,
		Username:         user.Username,
		RegistrationDate: time.Now().UTC(),
		AuthDate:         user.AuthDate,
	}

	created, err := r.as.Sync(c.Request.Context(), acc, hint)
	if err != nil {
		log.Error("failed to sync user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync user"})
		return
	}

	c.JSON(http.StatusOK, SyncResponse{Success: true, Created: created})
}

func (r *userRoutes) GetMe(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	acc, err := r.as.GetAccount(c.Request.Context(), user.ID)
	if err != nil {
		log.Info("failed to get account", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found, call sync first"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telegram_id":       acc.TelegramID,
		"first_name":        acc.FirstName,
		"username":          acc.Username,
		"balance":           acc.Balance,
		"total_ads_watched": acc.TotalAdsWatched,
		"referrals":         acc.Referrals,
		"referred_by":       acc.ReferredBy,
		"registration_date": acc.RegistrationDate,
	})
}

type referralItem struct {
	TelegramUsername string    `json:"telegram_username"`
	Referrals        int       `json:"referrals"`
	JoinedAt         time.Time `json:"joined_at"`
}

func (r *userRoutes) GetReferrals(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	referrals, err := r.as.GetReferrals(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to get user referrals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referrals"})
		return
	}

	out := make([]referralItem, len(referrals))
	for i, ref := range referrals {
		out[i] = referralItem{
			TelegramUsername: ref.TelegramUsername,
			Referrals:        ref.Referrals,
			JoinedAt:         ref.JoinedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}
