// Package worker - периодические проходы сверки. Каждый воркер выбирает
// ограниченную пачку id и обрабатывает каждую запись в своей транзакции.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tutoring-backend/internal/goroutine"
	"github.com/ignatzorin/tutoring-backend/internal/logger"
)

// Task описывает один воркер.
type Task struct {
	Name      string
	Interval  time.Duration
	BatchSize int
	// Eligible выбирает id записей, которым пора перейти в следующий статус.
	Eligible func(ctx context.Context, limit int) ([]uuid.UUID, error)
	// Process переводит одну запись. Должен сам перепроверять состояние.
	Process func(ctx context.Context, id uuid.UUID) error
}

// PassResult - итог одного прохода.
type PassResult struct {
	Selected  int
	Processed int
	Failed    int
}

// RunPass выполняет один проход. Ошибка или паника одной записи не останавливает проход.
func RunPass(ctx context.Context, task Task) (PassResult, error) {
	var res PassResult
	log := logger.Component("worker").WithField("worker", task.Name)

	ids, err := task.Eligible(ctx, task.BatchSize)
	if err != nil {
		return res, err
	}
	res.Selected = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		err := goroutine.Recover(func() error {
			return task.Process(ctx, id)
		})
		if err != nil {
			res.Failed++
			log.WithError(err).WithField("id", id).Error("не удалось обработать запись")
			continue
		}
		res.Processed++
	}

	if res.Selected > 0 {
		log.WithFields(logrus.Fields{
			"selected":  res.Selected,
			"processed": res.Processed,
			"failed":    res.Failed,
		}).Info("проход завершён")
	}
	return res, nil
}

// Run крутит проходы с паузой Interval до отмены ctx.
// Ошибка выборки логируется, пауза выдерживается в любом случае.
func Run(ctx context.Context, task Task) {
	log := logger.Component("worker").WithField("worker", task.Name)
	log.WithField("interval", task.Interval.String()).Info("воркер запущен")

	for {
		if _, err := RunPass(ctx, task); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("не удалось выбрать записи")
		}

		select {
		case <-ctx.Done():
			log.Info("воркер остановлен")
			return
		case <-time.After(task.Interval):
		}
	}
}

// Start запускает все воркеры и возвращает функцию ожидания их остановки.
func Start(ctx context.Context, tasks []Task) (wait func()) {
	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		goroutine.SafeGoWithContext(ctx, "worker", func(ctx context.Context) {
			defer wg.Done()
			Run(ctx, t)
		})
	}
	return wg.Wait
}
