package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/goroutine"
	"github.com/ignatzorin/tutoring-backend/internal/logger"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

const notificationTimeout = 5 * time.Second

// NotificationService содержит бизнес-логику работы с уведомлениями.
// Уведомление сохраняется в хранилище и, если настроена шина, публикуется в неё.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher EventPublisher
	clock     clock.Clock
}

// NewNotificationService создаёт новый сервис уведомлений. publisher может быть nil.
func NewNotificationService(repo repository.NotificationRepository, publisher EventPublisher, clk clock.Clock) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, clock: clk}
}

var _ Notifier = (*NotificationService)(nil)

// Notify доставляет уведомление в фоне. Ошибки только логируются.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, event string, data any) {
	bg := context.WithoutCancel(ctx)
	goroutine.SafeGo("notification", func() {
		ctx, cancel := context.WithTimeout(bg, notificationTimeout)
		defer cancel()
		if _, err := s.CreateNotification(ctx, recipientID, event, data); err != nil {
			logger.Component("notification").WithError(err).
				WithField("event", event).WithField("user_id", recipientID).
				Warn("не удалось доставить уведомление")
		}
	})
}

// CreateNotification создаёт новое уведомление.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data any) (*entity.Notification, error) {
	payload := map[string]any{
		"event": event,
		"data":  data,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &entity.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      event,
		Payload:   payloadBytes,
		IsRead:    false,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		envelope := map[string]any{
			"user_id": userID,
			"event":   event,
			"data":    data,
		}
		if err := s.publisher.PublishJSON(ctx, "notification."+event, envelope); err != nil {
			return notification, fmt.Errorf("notification service: publish %w", err)
		}
	}

	return notification, nil
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, clampLimit(limit), offset)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if id == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "не указано уведомление")
	}
	return s.repo.MarkRead(ctx, userID, id)
}
