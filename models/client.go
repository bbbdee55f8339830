package models

import "time"

// Client представляет клиента салона.
// Записи клиентов дедуплицируются при создании: сначала поиск по имени
// без учета регистра, затем по email/телефону (см. data.FindOrCreateClient).
type Client struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}
