package data

import (
	"database/sql"
	"fmt"
	"time"

	"salon_server_go/models"
)

// GetCustomServices извлекает каталог услуг пользователя.
// Возвращает nil, nil если каталог еще не сохранялся.
func (s *Store) GetCustomServices(userID string) (*models.CustomServices, error) {
	cs := &models.CustomServices{}
	query := s.rebind(`SELECT id, user_id, service_categories, created_at, updated_at
	          FROM custom_services WHERE user_id = ?`)
	err := s.DB.Get(cs, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("GetCustomServices: ошибка при получении каталога услуг: %w", err)
	}
	if err := cs.LoadJsonProperties(); err != nil {
		return nil, fmt.Errorf("GetCustomServices: ошибка десериализации каталога: %w", err)
	}
	return cs, nil
}

// SaveCustomServices сохраняет каталог услуг пользователя (одна строка на
// пользователя, вставка или обновление).
func (s *Store) SaveCustomServices(cs *models.CustomServices) error {
	if err := cs.UpdateJsonProperties(); err != nil {
		return fmt.Errorf("SaveCustomServices: ошибка сериализации каталога: %w", err)
	}
	now := time.Now()
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = now
	}
	cs.UpdatedAt = now

	query := `INSERT INTO custom_services (user_id, service_categories, created_at, updated_at)
	          VALUES (:user_id, :service_categories, :created_at, :updated_at)
	          ON CONFLICT (user_id) DO UPDATE SET
	          service_categories = excluded.service_categories, updated_at = excluded.updated_at`

	if _, err := s.DB.NamedExec(query, cs); err != nil {
		return fmt.Errorf("SaveCustomServices: ошибка при сохранении каталога: %w", err)
	}
	s.feed.Publish(ChangeEvent{Table: "custom_services", Type: ChangeUpdate, New: *cs})
	return nil
}
