package models

import "time"

// Appointment представляет одну запись клиента к мастеру.
// Поля Date и Time хранятся строками в форматах "yyyy-MM-dd" и "HH:mm" —
// так их присылает клиентское приложение.
type Appointment struct {
	ID          string    `json:"id" db:"id"`
	EmployeeID  int64     `json:"employee_id" db:"employee_id"`
	Date        string    `json:"date" db:"date"` // "yyyy-MM-dd"
	Time        string    `json:"time" db:"time"` // "HH:mm"
	Title       *string   `json:"title,omitempty" db:"title"`
	Client      string    `json:"client" db:"client"`
	Duration    int       `json:"duration" db:"duration"` // минуты, > 0
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Phone       *string   `json:"phone,omitempty" db:"phone"`
	Color       *string   `json:"color,omitempty" db:"color"`
	ServiceType string    `json:"service_type" db:"service_type"`
	ClientID    *int64    `json:"client_id,omitempty" db:"client_id"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
	UpdatedAt   time.Time `json:"-" db:"updated_at"`
}

// DisplayTitle возвращает заголовок для отображения: Title, если он задан,
// иначе тип услуги.
func (a *Appointment) DisplayTitle() string {
	if a.Title != nil && *a.Title != "" {
		return *a.Title
	}
	return a.ServiceType
}
