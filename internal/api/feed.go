package api

import (
	"net/http"
	"sync"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type feedEvent struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// WithdrawalFeed pushes newly submitted withdrawal requests to connected
// admin dashboards. Delivery is best-effort; a subscriber that cannot keep
// up is dropped.
type WithdrawalFeed struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewWithdrawalFeed() *WithdrawalFeed {
	return &WithdrawalFeed{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (f *WithdrawalFeed) Subscribe(c *gin.Context) {
	log := logger.Logger()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	f.mu.Lock()
	f.conns[conn] = struct{}{}
	f.mu.Unlock()

	go f.drain(conn)
}

// drain keeps the read side alive until the peer goes away, then removes
// the subscription.
func (f *WithdrawalFeed) drain(conn *websocket.Conn) {
	defer func() {
		f.mu.Lock()
		delete(f.conns, conn)
		f.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Logger().Info("withdrawal feed subscriber dropped", zap.Error(err))
			}
			return
		}
	}
}

func (f *WithdrawalFeed) Publish(w *model.Withdrawal) {
	event := feedEvent{
		Type: "withdrawal_submitted",
		Payload: map[string]any{
			"id":            w.ID.String(),
			"telegram_id":   w.TelegramID,
			"username":      w.Username,
			"amount_points": w.AmountPoints,
			"method":        w.Method,
			"destination":   w.Destination,
			"requested_at":  w.RequestedAt,
		},
	}

	msg, err := json.Marshal(event)
	if err != nil {
		logger.Logger().Error("failed to marshal feed event", zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(f.conns, conn)
		}
	}
}
