package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/policy"
	"adreward_miniapp/internal/service"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// postbackRoutes is the server-to-server entry point. It has a weaker trust
// contract than the user routes: identity comes from the network's query
// string, authenticated by a per-network HMAC rather than Telegram init data.
// The two paths never share handler code.
type postbackRoutes struct {
	rs      service.RewardServiceI
	secrets map[string]string
}

func NewPostbackRoutes(handler *gin.RouterGroup, rs service.RewardServiceI, secrets map[string]string) {
	r := &postbackRoutes{rs: rs, secrets: secrets}
	handler.GET("/postback/:network", r.handlePostback)
}

func (r *postbackRoutes) handlePostback(c *gin.Context) {
	log := logger.Logger()

	network := c.Param("network")
	secret, ok := r.secrets[network]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown network"})
		return
	}

	transactionID := c.Query("transaction_id")
	userIDParam := c.Query("user_id")
	amountParam := c.Query("amount")
	verifier := c.Query("verifier")

	if transactionID == "" || userIDParam == "" || amountParam == "" || verifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameters"})
		return
	}

	expected := computeVerifier(secret, transactionID, userIDParam, amountParam)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(verifier)) != 1 {
		log.Info("rejected postback with invalid verifier", zap.String("network", network))
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid verifier"})
		return
	}

	userID, err := strconv.ParseInt(userIDParam, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	amount, err := strconv.Atoi(amountParam)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	// Networks report non-completions too; acknowledge without crediting so
	// they stop redelivering.
	if status := c.Query("event_status"); status != "" && status != "1" && status != "completed" {
		c.String(http.StatusOK, "OK")
		return
	}

	txn := &model.Transaction{
		TransactionID: transactionID,
		TelegramID:    userID,
		Source:        network,
		RewardAmount:  amount,
		ReceivedAt:    time.Now().UTC(),
	}

	_, err = r.rs.HandlePostback(c.Request.Context(), txn)
	if err != nil {
		// Permanent outcomes are acknowledged with 200 so the network does
		// not retry-storm a call that can never succeed. Only transient
		// storage failures earn a 5xx and a redelivery.
		switch {
		case errors.Is(err, service.ErrDuplicateTransaction),
			errors.Is(err, policy.ErrCooldownActive),
			errors.Is(err, policy.ErrDailyLimitReached),
			errors.Is(err, service.ErrUserNotFound):
			log.Info("postback acknowledged without credit",
				zap.String("network", network),
				zap.String("transaction_id", transactionID),
				zap.Error(err))
			c.String(http.StatusOK, "OK")
		default:
			log.Error("failed to process postback",
				zap.String("network", network),
				zap.String("transaction_id", transactionID),
				zap.Error(err))
			c.String(http.StatusInternalServerError, "ERROR")
		}
		return
	}

	c.String(http.StatusOK, "OK")
}

// computeVerifier derives the expected signature for one postback call:
// hex(HMAC-SHA256(secret, transaction_id:user_id:amount)).
func computeVerifier(secret, transactionID, userID, amount string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(transactionID + ":" + userID + ":" + amount))
	return hex.EncodeToString(mac.Sum(nil))
}
