package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) PublishJSON(ctx context.Context, routingKey string, v any) error {
	args := m.Called(ctx, routingKey, v)
	return args.Error(0)
}

func TestNotificationService_CreatePublishes(t *testing.T) {
	store := memory.NewStore()
	pub := new(publisherMock)
	svc := NewNotificationService(store.Notifications(), pub, clock.NewFake(testStart))
	userID := uuid.New()

	pub.On("PublishJSON", mock.Anything, "notification."+EventPayoutPaid, mock.Anything).Return(nil).Once()

	n, err := svc.CreateNotification(context.Background(), userID, EventPayoutPaid, map[string]any{"amount": 90000})
	require.NoError(t, err)
	assert.Equal(t, EventPayoutPaid, n.Type)
	assert.Equal(t, testStart, n.CreatedAt)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(n.Payload, &payload))
	assert.Equal(t, EventPayoutPaid, payload["event"])

	list, err := svc.ListNotifications(context.Background(), userID, 10, -5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	pub.AssertExpectations(t)
}

func TestNotificationService_PublishFailureKeepsRow(t *testing.T) {
	store := memory.NewStore()
	pub := new(publisherMock)
	svc := NewNotificationService(store.Notifications(), pub, clock.NewFake(testStart))
	userID := uuid.New()

	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	n, err := svc.CreateNotification(context.Background(), userID, EventReportFiled, nil)
	assert.ErrorIs(t, err, assert.AnError)
	require.NotNil(t, n)

	list, err := svc.ListNotifications(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotificationService_NotifyInBackground(t *testing.T) {
	store := memory.NewStore()
	svc := NewNotificationService(store.Notifications(), nil, clock.NewFake(testStart))
	userID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	svc.Notify(ctx, userID, EventBookingCancelled, nil)
	cancel()

	assert.Eventually(t, func() bool {
		list, err := svc.ListNotifications(context.Background(), userID, 10, 0)
		return err == nil && len(list) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	store := memory.NewStore()
	svc := NewNotificationService(store.Notifications(), nil, clock.NewFake(testStart))
	userID := uuid.New()

	n, err := svc.CreateNotification(context.Background(), userID, EventRefundApproved, nil)
	require.NoError(t, err)

	assert.Error(t, svc.MarkAsRead(context.Background(), uuid.Nil, userID))
	assert.Error(t, svc.MarkAsRead(context.Background(), n.ID, uuid.New()))
	require.NoError(t, svc.MarkAsRead(context.Background(), n.ID, userID))

	list, err := svc.ListNotifications(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}
