// Package goroutine запускает фоновые задачи движка так, чтобы паника
// в одной из них не роняла процесс.
package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tutoring-backend/internal/logger"
)

// PanicError - паника, перехваченная Recover.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover выполняет fn синхронно и возвращает панику как *PanicError.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// SafeGo запускает fn в отдельной горутине. Паника логируется с компонентом.
func SafeGo(component string, fn func()) {
	go func() {
		if err := Recover(func() error { fn(); return nil }); err != nil {
			logPanic(component, err)
		}
	}()
}

// SafeGoWithContext то же, что SafeGo, но передаёт ctx в fn.
func SafeGoWithContext(ctx context.Context, component string, fn func(context.Context)) {
	SafeGo(component, func() { fn(ctx) })
}

func logPanic(component string, err error) {
	entry := logger.Component(component)
	if p, ok := err.(*PanicError); ok {
		entry = entry.WithFields(logrus.Fields{"panic": fmt.Sprint(p.Value), "stack": string(p.Stack)})
	}
	entry.Error("паника в фоновой задаче")
}
