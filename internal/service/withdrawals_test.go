package service

import (
	"context"
	"testing"
	"time"

	"adreward_miniapp/internal/model"
	"adreward_miniapp/internal/repository"
	"adreward_miniapp/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testWithdrawalConfig() WithdrawalConfig {
	return WithdrawalConfig{
		MinBalance:   600,
		MinReferrals: 3,
		MinAmount:    100,
	}
}

func TestWithdrawalService_Submit(t *testing.T) {
	tests := []struct {
		name          string
		amount        int
		mockSetup     func(m *mocks.MockWithdrawalRepository)
		expectedError error
	}{
		{
			name:   "successful submission",
			amount: 600,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("CreateWithdrawal", mock.Anything, mock.MatchedBy(func(w *model.Withdrawal) bool {
					return w.TelegramID == 1 &&
						w.AmountPoints == 600 &&
						w.Method == "bkash" &&
						w.Destination == "017XXXXXXXX" &&
						w.ID != uuid.Nil
				}), 600, 3).Return(nil)
			},
		},
		{
			name:          "amount below minimum never reaches storage",
			amount:        99,
			mockSetup:     func(m *mocks.MockWithdrawalRepository) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "balance below threshold",
			amount: 600,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("CreateWithdrawal", mock.Anything, mock.Anything, 600, 3).
					Return(repository.ErrBelowMinimumBalance)
			},
			expectedError: ErrBelowMinimumBalance,
		},
		{
			name:   "referrals below threshold",
			amount: 600,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("CreateWithdrawal", mock.Anything, mock.Anything, 600, 3).
					Return(repository.ErrBelowMinimumReferrals)
			},
			expectedError: ErrBelowMinimumReferral,
		},
		{
			name:   "amount exceeds balance",
			amount: 5000,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("CreateWithdrawal", mock.Anything, mock.Anything, 600, 3).
					Return(repository.ErrInsufficientBalance)
			},
			expectedError: ErrInsufficientBalance,
		},
		{
			name:   "submit before sync",
			amount: 600,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("CreateWithdrawal", mock.Anything, mock.Anything, 600, 3).
					Return(repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockWithdrawalRepository{}
			tt.mockSetup(mockRepo)

			s := NewWithdrawalService(mockRepo, testWithdrawalConfig(), nil, nil)
			w, err := s.Submit(context.Background(), 1, tt.amount, "bkash", "017XXXXXXXX")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, w)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, w)
				assert.Equal(t, model.WithdrawalPending, w.Status)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestWithdrawalService_SubmitAnnounces(t *testing.T) {
	mockRepo := &mocks.MockWithdrawalRepository{}
	mockRepo.On("CreateWithdrawal", mock.Anything, mock.Anything, 600, 3).Return(nil)

	notified := make(chan struct{})
	published := make(chan struct{})

	notifier := &mocks.MockNotifier{}
	notifier.On("NotifyWithdrawal", mock.MatchedBy(func(w *model.Withdrawal) bool {
		return w.AmountPoints == 600
	})).Run(func(mock.Arguments) { close(notified) }).Return(nil)

	feed := &mocks.MockPublisher{}
	feed.On("Publish", mock.Anything).Run(func(mock.Arguments) { close(published) }).Return()

	s := NewWithdrawalService(mockRepo, testWithdrawalConfig(), notifier, feed)
	_, err := s.Submit(context.Background(), 1, 600, "nagad", "018XXXXXXXX")
	require.NoError(t, err)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("operator notification was never sent")
	}
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("feed event was never published")
	}

	mockRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
	feed.AssertExpectations(t)
}

func TestWithdrawalService_Resolve(t *testing.T) {
	id := uuid.New()
	processed := time.Now().UTC()
	rejected := &model.Withdrawal{
		ID:           id,
		TelegramID:   1,
		AmountPoints: 600,
		Status:       model.WithdrawalRejected,
		ProcessedAt:  &processed,
	}

	tests := []struct {
		name          string
		decision      model.WithdrawalStatus
		mockSetup     func(m *mocks.MockWithdrawalRepository)
		expectedError error
	}{
		{
			name:     "reject refunds through the repository",
			decision: model.WithdrawalRejected,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("ResolveWithdrawal", mock.Anything, id, model.WithdrawalRejected, mock.Anything).
					Return(rejected, nil)
			},
		},
		{
			name:          "pending is not a legal decision",
			decision:      model.WithdrawalPending,
			mockSetup:     func(m *mocks.MockWithdrawalRepository) {},
			expectedError: ErrInvalidDecision,
		},
		{
			name:     "second resolution is a reported no-op",
			decision: model.WithdrawalApproved,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("ResolveWithdrawal", mock.Anything, id, model.WithdrawalApproved, mock.Anything).
					Return(nil, repository.ErrAlreadyProcessed)
			},
			expectedError: ErrAlreadyProcessed,
		},
		{
			name:     "unknown id",
			decision: model.WithdrawalApproved,
			mockSetup: func(m *mocks.MockWithdrawalRepository) {
				m.On("ResolveWithdrawal", mock.Anything, id, model.WithdrawalApproved, mock.Anything).
					Return(nil, repository.ErrWithdrawalNotFound)
			},
			expectedError: ErrWithdrawalNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockWithdrawalRepository{}
			tt.mockSetup(mockRepo)

			s := NewWithdrawalService(mockRepo, testWithdrawalConfig(), nil, nil)
			w, err := s.Resolve(context.Background(), id, tt.decision)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, w)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, w)
				assert.Equal(t, tt.decision, w.Status)
				assert.NotNil(t, w.ProcessedAt)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
