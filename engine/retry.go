package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"salon_server_go/models"
)

// ValidationError — ошибка проверки входных данных. Такие ошибки
// выявляются до любой записи и никогда не ретраятся.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// RetryOptions — параметры комбинатора WithRetry.
type RetryOptions struct {
	Attempts int
	Delay    time.Duration // базовая задержка; фактическая растет с номером попытки
}

// WithRetry выполняет fn до Attempts раз, с растущей задержкой между
// попытками. Используется и исполнителем записи, и движком бэкапов —
// раньше такие циклы были размножены по месту вызова.
func WithRetry(ctx context.Context, opts RetryOptions, fn func(ctx context.Context) error) error {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var ve *ValidationError
		if errors.As(lastErr, &ve) {
			return lastErr // ошибки валидации не ретраятся
		}
		if attempt == opts.Attempts {
			break
		}
		delay := opts.Delay * time.Duration(attempt)
		log.Printf("WithRetry: попытка %d/%d не удалась (%v), следующая через %v", attempt, opts.Attempts, lastErr, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("WithRetry: все %d попыток исчерпаны: %w", opts.Attempts, lastErr)
}

// AppointmentWriter — минимальный интерфейс записи, который нужен
// исполнителю. Реализуется data.Store; тесты подставляют фальшивку.
type AppointmentWriter interface {
	UpsertAppointment(ctx context.Context, a *models.Appointment) error
}

// SaveResult — итог сохранения одной записи.
type SaveResult struct {
	Success        bool
	ConflictWarned bool
	Err            error
}

// WriteExecutor выполняет одну логическую запись с ретраями, таймаутом на
// попытку и предупредительной проверкой пересечений. Тайминги берутся из
// профиля устройства.
type WriteExecutor struct {
	Writer  AppointmentWriter
	Profile RuntimeProfile
}

// NewWriteExecutor создает исполнителя с указанным профилем.
func NewWriteExecutor(w AppointmentWriter, p RuntimeProfile) *WriteExecutor {
	return &WriteExecutor{Writer: w, Profile: p}
}

// Save сохраняет запись. Пересечение с existing только логируется и не
// мешает записи; исчерпание ретраев дает SaveResult с ошибкой, но вызов
// батча продолжается — упавший элемент попадает в отчет, не роняя соседей.
func (e *WriteExecutor) Save(ctx context.Context, a *models.Appointment, existing []models.Appointment) SaveResult {
	if err := validateAppointment(a); err != nil {
		return SaveResult{Err: err}
	}

	res := SaveResult{}
	if conflicts := FindConflicts(*a, existing); len(conflicts) > 0 {
		res.ConflictWarned = true
		log.Printf("WriteExecutor: запись %s (%s %s, мастер %d) пересекается с %d существующими — сохраняем как есть",
			a.ID, a.Date, a.Time, a.EmployeeID, len(conflicts))
	}

	err := WithRetry(ctx, RetryOptions{Attempts: e.Profile.MaxAttempts, Delay: e.Profile.RetryDelay}, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.Profile.WriteTimeout)
		defer cancel()
		return e.Writer.UpsertAppointment(attemptCtx, a)
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Success = true
	return res
}

// validateAppointment проверяет обязательные поля перед записью.
func validateAppointment(a *models.Appointment) error {
	if strings.TrimSpace(a.Client) == "" {
		return &ValidationError{Field: "client", Msg: "имя клиента обязательно"}
	}
	if strings.TrimSpace(a.ServiceType) == "" {
		return &ValidationError{Field: "service_type", Msg: "тип услуги обязателен"}
	}
	if a.Duration <= 0 {
		return &ValidationError{Field: "duration", Msg: "длительность должна быть больше нуля"}
	}
	if _, err := parseMinutes(a.Time); err != nil {
		return &ValidationError{Field: "time", Msg: "время должно быть в формате HH:mm"}
	}
	return nil
}
