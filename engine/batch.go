package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"salon_server_go/models"
)

// Категории элементов батча.
const (
	CategoryMain       = "main"
	CategoryAdditional = "additional"
	CategoryRecurring  = "recurring"
)

// SaveFailure описывает один несохранившийся элемент батча.
type SaveFailure struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Error    string `json:"error"`
}

// BatchResult — агрегированный итог батч-сохранения.
type BatchResult struct {
	MainSaved            bool          `json:"main_saved"`
	SavedAdditionalCount int           `json:"saved_additional_count"`
	SavedRecurringCount  int           `json:"saved_recurring_count"`
	TotalRecurring       int           `json:"total_recurring"`
	FailedSaves          []SaveFailure `json:"failed_saves"`
}

// Summary возвращает одно человекочитаемое сообщение об итоге батча.
// Формулировка зависит от того, сохранились ли все, часть или ни одной
// повторяющейся записи.
func (r *BatchResult) Summary() string {
	if !r.MainSaved {
		return "Не удалось сохранить запись."
	}
	if r.TotalRecurring == 0 {
		if len(r.FailedSaves) == 0 {
			return "Запись сохранена."
		}
		return fmt.Sprintf("Запись сохранена, но %d дополнительных не удалось.", len(r.FailedSaves))
	}
	switch {
	case r.SavedRecurringCount == r.TotalRecurring && len(r.FailedSaves) == 0:
		return fmt.Sprintf("Запись сохранена вместе с %d повторяющимися.", r.SavedRecurringCount)
	case r.SavedRecurringCount == 0:
		return "Запись сохранена, но ни одну повторяющуюся сохранить не удалось."
	default:
		return fmt.Sprintf("Запись сохранена; повторяющихся сохранено %d из %d.", r.SavedRecurringCount, r.TotalRecurring)
	}
}

// Orchestrator последовательно проводит батч записей через исполнителя.
// Последовательность (main -> additional -> recurring, внутри категории —
// порядок входа) и пауза между записями обязательны: hosted-хранилище
// нестабильно под залпом конкурентных записей с медленных клиентов, так
// что пропускная способность сознательно обменяна на надежность.
type Orchestrator struct {
	Exec    *WriteExecutor
	Profile RuntimeProfile
}

// NewOrchestrator создает оркестратор поверх исполнителя записи.
func NewOrchestrator(exec *WriteExecutor) *Orchestrator {
	return &Orchestrator{Exec: exec, Profile: exec.Profile}
}

// SaveAppointments сохраняет основную запись, дополнительные записи того же
// дня и повторяющиеся записи. Провал основной записи — жесткая ошибка,
// батч прерывается; провалы остальных накапливаются в отчете и не
// останавливают соседей. existing — снимок текущих записей для проверки
// пересечений; успешно записанные элементы добавляются к нему, чтобы
// проверки следующих элементов видели уже записанные.
func (o *Orchestrator) SaveAppointments(ctx context.Context, main *models.Appointment, additional, recurring []models.Appointment, existing []models.Appointment) (*BatchResult, error) {
	result := &BatchResult{TotalRecurring: len(recurring)}

	res := o.Exec.Save(ctx, main, existing)
	if !res.Success {
		result.FailedSaves = append(result.FailedSaves, failureOf(CategoryMain, main, res.Err))
		return result, fmt.Errorf("SaveAppointments: не удалось сохранить основную запись: %w", res.Err)
	}
	result.MainSaved = true
	existing = append(existing, *main)

	for i := range additional {
		if err := o.pause(ctx); err != nil {
			return result, err
		}
		a := &additional[i]
		res := o.Exec.Save(ctx, a, existing)
		if !res.Success {
			log.Printf("SaveAppointments: дополнительная запись %s не сохранилась: %v", a.ID, res.Err)
			result.FailedSaves = append(result.FailedSaves, failureOf(CategoryAdditional, a, res.Err))
			continue
		}
		result.SavedAdditionalCount++
		existing = append(existing, *a)
	}

	for i := range recurring {
		if err := o.pause(ctx); err != nil {
			return result, err
		}
		a := &recurring[i]
		res := o.Exec.Save(ctx, a, existing)
		if !res.Success {
			log.Printf("SaveAppointments: повторяющаяся запись %s не сохранилась: %v", a.ID, res.Err)
			result.FailedSaves = append(result.FailedSaves, failureOf(CategoryRecurring, a, res.Err))
			continue
		}
		result.SavedRecurringCount++
		existing = append(existing, *a)
	}

	log.Printf("SaveAppointments: итог — main: %t, additional: %d/%d, recurring: %d/%d, ошибок: %d",
		result.MainSaved, result.SavedAdditionalCount, len(additional),
		result.SavedRecurringCount, len(recurring), len(result.FailedSaves))
	return result, nil
}

// SaveSeries сохраняет серию повторяющихся записей без основной записи —
// путь материализации процедуры при смене видимого окна дат. Та же
// последовательность и паузы, что в SaveAppointments.
func (o *Orchestrator) SaveSeries(ctx context.Context, series []models.Appointment, existing []models.Appointment) *BatchResult {
	result := &BatchResult{MainSaved: true, TotalRecurring: len(series)}
	for i := range series {
		a := &series[i]
		res := o.Exec.Save(ctx, a, existing)
		if !res.Success {
			log.Printf("SaveSeries: запись %s не сохранилась: %v", a.ID, res.Err)
			result.FailedSaves = append(result.FailedSaves, failureOf(CategoryRecurring, a, res.Err))
		} else {
			result.SavedRecurringCount++
			existing = append(existing, *a)
		}
		if i < len(series)-1 {
			if err := o.pause(ctx); err != nil {
				return result
			}
		}
	}
	return result
}

// pause ждет межзаписевую паузу профиля, уважая отмену контекста.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.Profile.InterWriteDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(o.Profile.InterWriteDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func failureOf(category string, a *models.Appointment, err error) SaveFailure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return SaveFailure{Category: category, ID: a.ID, Date: a.Date, Time: a.Time, Error: msg}
}
