package models

import "time"

// Типы периодичности повторяющихся процедур.
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// RecurringTreatment описывает повторяющуюся процедуру одного клиента.
// Активная процедура порождает будущие Appointment'ы через
// engine.ExpandTreatment; деактивация (IsActive = false) останавливает
// генерацию, не трогая уже созданные записи.
type RecurringTreatment struct {
	ID                  int64     `json:"id" db:"id"`
	ClientID            int64     `json:"client_id" db:"client_id"`
	EmployeeID          int64     `json:"employee_id" db:"employee_id"`
	ServiceType         string    `json:"service_type" db:"service_type"`
	Duration            int       `json:"duration" db:"duration"`
	Notes               *string   `json:"notes,omitempty" db:"notes"`
	FrequencyType       string    `json:"frequency_type" db:"frequency_type"`   // weekly | monthly
	FrequencyValue      int       `json:"frequency_value" db:"frequency_value"` // повторять каждые N недель/месяцев
	PreferredDayOfWeek  *int      `json:"preferred_day_of_week,omitempty" db:"preferred_day_of_week"`   // 0-6, обязателен при weekly
	PreferredDayOfMonth *int      `json:"preferred_day_of_month,omitempty" db:"preferred_day_of_month"` // 1-31, обязателен при monthly
	PreferredTime       string    `json:"preferred_time" db:"preferred_time"`   // "HH:mm"
	IsActive            bool      `json:"is_active" db:"is_active"`
	StartDate           string    `json:"start_date" db:"start_date"` // "yyyy-MM-dd"
	EndDate             *string   `json:"end_date,omitempty" db:"end_date"`
	CreatedAt           time.Time `json:"-" db:"created_at"`
	UpdatedAt           time.Time `json:"-" db:"updated_at"`
}
