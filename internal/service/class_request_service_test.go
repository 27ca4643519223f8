package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

func TestClassRequestService_Create(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()

	_, err := e.classRequests.Create(e.ctx, learnerID, uuid.New(), testStart.Add(-time.Hour), "")
	assert.True(t, apperror.IsValidation(err))

	_, err = e.classRequests.Create(e.ctx, learnerID, uuid.Nil, testStart.Add(time.Hour), "")
	assert.True(t, apperror.IsValidation(err))

	cr, err := e.classRequests.Create(e.ctx, learnerID, uuid.New(), testStart.Add(48*time.Hour), "  алгебра, 9 класс ")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ClassRequestOpen, cr.Status)
	require.NotNil(t, cr.Note)
	assert.Equal(t, "алгебра, 9 класс", *cr.Note)

	list, err := e.classRequests.ListByLearner(e.ctx, learnerID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClassRequestService_Close(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	cr, err := e.classRequests.Create(e.ctx, learnerID, uuid.New(), testStart.Add(48*time.Hour), "")
	require.NoError(t, err)

	_, err = e.classRequests.Close(e.ctx, cr.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	closed, err := e.classRequests.Close(e.ctx, cr.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ClassRequestClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// закрытая заявка не истекает повторно
	e.clock.Advance(72 * time.Hour)
	require.NoError(t, e.classRequests.Expire(e.ctx, cr.ID))
	assert.Zero(t, e.notifier.count(learnerID, EventClassRequestExpired))
}

func TestClassRequestService_Expire(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	cr, err := e.classRequests.Create(e.ctx, learnerID, uuid.New(), testStart.Add(24*time.Hour), "")
	require.NoError(t, err)

	require.NoError(t, e.classRequests.Expire(e.ctx, cr.ID))
	ids, err := e.classRequests.ListExpired(e.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	e.clock.Set(cr.ExpectedStartAt)
	ids, err = e.classRequests.ListExpired(e.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cr.ID}, ids)

	require.NoError(t, e.classRequests.Expire(e.ctx, cr.ID))
	require.NoError(t, e.classRequests.Expire(e.ctx, cr.ID))
	assert.Equal(t, 1, e.notifier.count(learnerID, EventClassRequestExpired))

	_, err = e.classRequests.Close(e.ctx, cr.ID, learnerID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}
