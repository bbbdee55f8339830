package models

import (
	"encoding/json"
	"time"
)

// Специализации мастеров. В приложении их ровно две.
const (
	SpecializationHairdresser = "hairdresser"
	SpecializationBeautician  = "beautician"
)

// Employee представляет мастера салона.
type Employee struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Color          string    `json:"color" db:"color"`
	Specialization string    `json:"specialization" db:"specialization"`
	VacationsJson  string    `json:"-" db:"vacations"` // JSON-массив дат "yyyy-MM-dd"
	CreatedAt      time.Time `json:"-" db:"created_at"`
	UpdatedAt      time.Time `json:"-" db:"updated_at"`

	Vacations []string `json:"vacations" db:"-"`
}

// UpdateJsonProperties сериализует Vacations в JSON-строку для записи в БД.
func (e *Employee) UpdateJsonProperties() error {
	if e.Vacations == nil {
		e.Vacations = []string{}
	}
	b, err := json.Marshal(e.Vacations)
	if err != nil {
		return err
	}
	e.VacationsJson = string(b)
	return nil
}

// LoadJsonProperties десериализует VacationsJson в поле Vacations.
func (e *Employee) LoadJsonProperties() error {
	if e.VacationsJson == "" {
		e.VacationsJson = "[]"
	}
	if err := json.Unmarshal([]byte(e.VacationsJson), &e.Vacations); err != nil {
		e.Vacations = []string{}
	}
	return nil
}

// OnVacation сообщает, стоит ли указанная дата ("yyyy-MM-dd") в списке
// отпусков мастера. Отпуск — мягкая блокировка: запись на эту дату
// допускается, но интерфейс её подсвечивает.
func (e *Employee) OnVacation(date string) bool {
	for _, d := range e.Vacations {
		if d == date {
			return true
		}
	}
	return false
}
