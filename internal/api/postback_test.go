package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRewardService struct {
	mock.Mock
}

func (m *mockRewardService) Claim(ctx context.Context, telegramID int64, channel model.Channel) (*service.ClaimResult, error) {
	args := m.Called(ctx, telegramID, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ClaimResult), args.Error(1)
}

func (m *mockRewardService) HandlePostback(ctx context.Context, txn *model.Transaction) (int, error) {
	args := m.Called(ctx, txn)
	return args.Int(0), args.Error(1)
}

func newPostbackRouter(rs service.RewardServiceI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewPostbackRoutes(router.Group("/api/v1"), rs, map[string]string{"adnet": "secret-key"})
	return router
}

func postbackURL(txnID, userID, amount, verifier string) string {
	q := url.Values{}
	q.Set("transaction_id", txnID)
	q.Set("user_id", userID)
	q.Set("amount", amount)
	q.Set("verifier", verifier)
	return fmt.Sprintf("/api/v1/postback/adnet?%s", q.Encode())
}

func TestPostbackHandler(t *testing.T) {
	validVerifier := computeVerifier("secret-key", "txn-1", "42", "5")

	tests := []struct {
		name         string
		url          string
		mockSetup    func(m *mockRewardService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "valid postback credits once",
			url:  postbackURL("txn-1", "42", "5", validVerifier),
			mockSetup: func(m *mockRewardService) {
				m.On("HandlePostback", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
					return txn.TransactionID == "txn-1" &&
						txn.TelegramID == 42 &&
						txn.RewardAmount == 5 &&
						txn.Source == "adnet"
				})).Return(5, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: "OK",
		},
		{
			name: "replayed transaction is acknowledged without credit",
			url:  postbackURL("txn-1", "42", "5", validVerifier),
			mockSetup: func(m *mockRewardService) {
				m.On("HandlePostback", mock.Anything, mock.Anything).
					Return(0, service.ErrDuplicateTransaction)
			},
			expectedCode: http.StatusOK,
			expectedBody: "OK",
		},
		{
			name:         "invalid verifier is rejected before any crediting",
			url:          postbackURL("txn-1", "42", "5", "deadbeef"),
			mockSetup:    func(m *mockRewardService) {},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "tampered amount breaks the verifier",
			url:          postbackURL("txn-1", "42", "9999", validVerifier),
			mockSetup:    func(m *mockRewardService) {},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "missing parameters",
			url:          "/api/v1/postback/adnet?transaction_id=txn-1",
			mockSetup:    func(m *mockRewardService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown network",
			url:          "/api/v1/postback/other?transaction_id=t&user_id=1&amount=1&verifier=x",
			mockSetup:    func(m *mockRewardService) {},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "transient storage failure asks the network to retry",
			url:  postbackURL("txn-1", "42", "5", validVerifier),
			mockSetup: func(m *mockRewardService) {
				m.On("HandlePostback", mock.Anything, mock.Anything).
					Return(0, assert.AnError)
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &mockRewardService{}
			tt.mockSetup(rs)
			router := newPostbackRouter(rs)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, rec.Body.String())
			}

			rs.AssertExpectations(t)
		})
	}
}

func TestPostbackIgnoresNonCompletionEvents(t *testing.T) {
	verifier := computeVerifier("secret-key", "txn-2", "42", "5")
	rs := &mockRewardService{}
	router := newPostbackRouter(rs)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		postbackURL("txn-2", "42", "5", verifier)+"&event_status=cancelled", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	rs.AssertNotCalled(t, "HandlePostback", mock.Anything, mock.Anything)
}
