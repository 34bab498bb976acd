package api

import (
	"errors"
	"net/http"

	"adreward_miniapp/internal/middleware"
	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/service"
	"adreward_miniapp/pkg/auth"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type withdrawalRoutes struct {
	ws   service.WithdrawalServiceI
	a    *auth.TelegramAuth
	feed *WithdrawalFeed
}

func NewWithdrawalRoutes(handler *gin.RouterGroup, ws service.WithdrawalServiceI, a *auth.TelegramAuth, admin *middleware.AdminAuth, feed *WithdrawalFeed) {
	r := &withdrawalRoutes{ws: ws, a: a, feed: feed}

	h := handler.Group("/withdrawals")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/", r.Submit)
	}

	adm := handler.Group("/admin/withdrawals")
	adm.Use(admin.AdminOnly())
	{
		adm.GET("/", r.List)
		adm.POST("/:id/resolve", r.Resolve)
		adm.GET("/live", r.feed.Subscribe)
	}
}

type SubmitWithdrawalRequest struct {
	AmountPoints int    `json:"amount_points" binding:"required"`
	Method       string `json:"method" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
}

func (r *withdrawalRoutes) Submit(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var req SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_points, method and destination are required"})
		return
	}

	w, err := r.ws.Submit(c.Request.Context(), user.ID, req.AmountPoints, req.Method, req.Destination)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "withdrawal amount is below the minimum"})
		case errors.Is(err, service.ErrBelowMinimumBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": "balance is below the withdrawal minimum"})
		case errors.Is(err, service.ErrBelowMinimumReferral):
			c.JSON(http.StatusBadRequest, gin.H{"error": "not enough referrals to withdraw"})
		case errors.Is(err, service.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient balance"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found, call sync first"})
		default:
			log.Error("failed to submit withdrawal",
				zap.Int64("telegram_id", user.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit withdrawal"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"withdrawal_id": w.ID,
		"status":        w.Status,
	})
}

func (r *withdrawalRoutes) List(c *gin.Context) {
	log := logger.Logger()

	status := model.WithdrawalStatus(c.DefaultQuery("status", string(model.WithdrawalPending)))

	list, err := r.ws.List(c.Request.Context(), status)
	if err != nil {
		log.Error("failed to list withdrawals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}

	out := make([]gin.H, len(list))
	for i, w := range list {
		out[i] = gin.H{
			"id":            w.ID,
			"telegram_id":   w.TelegramID,
			"username":      w.Username,
			"amount_points": w.AmountPoints,
			"method":        w.Method,
			"destination":   w.Destination,
			"status":        w.Status,
			"requested_at":  w.RequestedAt,
			"processed_at":  w.ProcessedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}

type ResolveRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func (r *withdrawalRoutes) Resolve(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision is required"})
		return
	}

	w, err := r.ws.Resolve(c.Request.Context(), id, model.WithdrawalStatus(req.Decision))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDecision):
			c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be approved or rejected"})
		case errors.Is(err, service.ErrWithdrawalNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
		case errors.Is(err, service.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "withdrawal already processed"})
		default:
			log.Error("failed to resolve withdrawal",
				zap.String("withdrawal_id", id.String()),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve withdrawal"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           w.ID,
		"status":       w.Status,
		"processed_at": w.ProcessedAt,
	})
}
