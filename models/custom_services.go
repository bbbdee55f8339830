package models

import (
	"encoding/json"
	"time"
)

// CustomServices хранит каталог услуг салона, настроенный пользователем.
// Категории лежат в одной JSON-колонке: map[категория][]услуга.
type CustomServices struct {
	ID                    int64     `json:"id" db:"id"`
	UserID                string    `json:"user_id" db:"user_id"`
	ServiceCategoriesJson string    `json:"-" db:"service_categories"`
	CreatedAt             time.Time `json:"-" db:"created_at"`
	UpdatedAt             time.Time `json:"-" db:"updated_at"`

	ServiceCategories map[string][]string `json:"service_categories" db:"-"`
}

// UpdateJsonProperties сериализует ServiceCategories в JSON-колонку.
func (s *CustomServices) UpdateJsonProperties() error {
	if s.ServiceCategories == nil {
		s.ServiceCategories = map[string][]string{}
	}
	b, err := json.Marshal(s.ServiceCategories)
	if err != nil {
		return err
	}
	s.ServiceCategoriesJson = string(b)
	return nil
}

// LoadJsonProperties десериализует JSON-колонку в ServiceCategories.
func (s *CustomServices) LoadJsonProperties() error {
	if s.ServiceCategoriesJson == "" {
		s.ServiceCategoriesJson = "{}"
	}
	if err := json.Unmarshal([]byte(s.ServiceCategoriesJson), &s.ServiceCategories); err != nil {
		s.ServiceCategories = map[string][]string{}
	}
	return nil
}
