package data

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"salon_server_go/models"
)

// CreateRecurringTreatment создает новую повторяющуюся процедуру.
func (s *Store) CreateRecurringTreatment(t *models.RecurringTreatment) (int64, error) {
	if err := validateTreatment(t); err != nil {
		return 0, err
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	// RETURNING вместо LastInsertId: lib/pq не реализует LastInsertId.
	query := `INSERT INTO recurring_treatments (client_id, employee_id, service_type, duration, notes, frequency_type, frequency_value, preferred_day_of_week, preferred_day_of_month, preferred_time, is_active, start_date, end_date, created_at, updated_at)
	          VALUES (:client_id, :employee_id, :service_type, :duration, :notes, :frequency_type, :frequency_value, :preferred_day_of_week, :preferred_day_of_month, :preferred_time, :is_active, :start_date, :end_date, :created_at, :updated_at)
	          RETURNING id`

	rows, err := s.DB.NamedQuery(query, t)
	if err != nil {
		return 0, fmt.Errorf("CreateRecurringTreatment: ошибка при вставке: %w", err)
	}
	defer rows.Close()

	var newID int64
	if !rows.Next() {
		return 0, fmt.Errorf("CreateRecurringTreatment: вставка не вернула ID")
	}
	if err := rows.Scan(&newID); err != nil {
		return 0, fmt.Errorf("CreateRecurringTreatment: ошибка при получении ID: %w", err)
	}
	t.ID = newID
	s.feed.Publish(ChangeEvent{Table: "recurring_treatments", Type: ChangeInsert, New: *t})
	log.Printf("Создана повторяющаяся процедура %d (клиент %d, %s)", newID, t.ClientID, t.FrequencyType)
	return newID, nil
}

// validateTreatment проверяет согласованность полей периодичности.
func validateTreatment(t *models.RecurringTreatment) error {
	switch t.FrequencyType {
	case models.FrequencyWeekly:
		if t.PreferredDayOfWeek == nil {
			return fmt.Errorf("validateTreatment: для weekly-процедуры обязателен preferred_day_of_week")
		}
	case models.FrequencyMonthly:
		if t.PreferredDayOfMonth == nil {
			return fmt.Errorf("validateTreatment: для monthly-процедуры обязателен preferred_day_of_month")
		}
	default:
		return fmt.Errorf("validateTreatment: неизвестный тип периодичности '%s'", t.FrequencyType)
	}
	if t.FrequencyValue < 1 {
		return fmt.Errorf("validateTreatment: frequency_value должен быть >= 1")
	}
	return nil
}

// GetRecurringTreatmentByID извлекает процедуру по ID. nil, nil если нет.
func (s *Store) GetRecurringTreatmentByID(id int64) (*models.RecurringTreatment, error) {
	t := &models.RecurringTreatment{}
	query := s.rebind(`SELECT id, client_id, employee_id, service_type, duration, notes, frequency_type, frequency_value, preferred_day_of_week, preferred_day_of_month, preferred_time, is_active, start_date, end_date, created_at, updated_at
	          FROM recurring_treatments WHERE id = ?`)
	err := s.DB.Get(t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("GetRecurringTreatmentByID: ошибка при получении процедуры %d: %w", id, err)
	}
	return t, nil
}

// GetAllRecurringTreatments извлекает все процедуры.
func (s *Store) GetAllRecurringTreatments() ([]models.RecurringTreatment, error) {
	var list []models.RecurringTreatment
	query := `SELECT id, client_id, employee_id, service_type, duration, notes, frequency_type, frequency_value, preferred_day_of_week, preferred_day_of_month, preferred_time, is_active, start_date, end_date, created_at, updated_at
	          FROM recurring_treatments ORDER BY id ASC`
	if err := s.DB.Select(&list, query); err != nil {
		return nil, fmt.Errorf("GetAllRecurringTreatments: ошибка при получении процедур: %w", err)
	}
	return list, nil
}

// GetActiveRecurringTreatments извлекает только активные процедуры —
// именно их материализует экспандер; неактивные он не должен видеть вовсе.
func (s *Store) GetActiveRecurringTreatments() ([]models.RecurringTreatment, error) {
	var list []models.RecurringTreatment
	query := s.rebind(`SELECT id, client_id, employee_id, service_type, duration, notes, frequency_type, frequency_value, preferred_day_of_week, preferred_day_of_month, preferred_time, is_active, start_date, end_date, created_at, updated_at
	          FROM recurring_treatments WHERE is_active = ? ORDER BY id ASC`)
	if err := s.DB.Select(&list, query, true); err != nil {
		return nil, fmt.Errorf("GetActiveRecurringTreatments: ошибка при получении процедур: %w", err)
	}
	return list, nil
}

// UpdateRecurringTreatment обновляет существующую процедуру.
func (s *Store) UpdateRecurringTreatment(t *models.RecurringTreatment) error {
	if err := validateTreatment(t); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()

	query := `UPDATE recurring_treatments SET client_id = :client_id, employee_id = :employee_id,
	          service_type = :service_type, duration = :duration, notes = :notes,
	          frequency_type = :frequency_type, frequency_value = :frequency_value,
	          preferred_day_of_week = :preferred_day_of_week, preferred_day_of_month = :preferred_day_of_month,
	          preferred_time = :preferred_time, is_active = :is_active,
	          start_date = :start_date, end_date = :end_date, updated_at = :updated_at
	          WHERE id = :id`

	result, err := s.DB.NamedExec(query, t)
	if err != nil {
		return fmt.Errorf("UpdateRecurringTreatment: ошибка при обновлении процедуры %d: %w", t.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		log.Printf("UpdateRecurringTreatment: процедура %d не найдена для обновления.", t.ID)
		return sql.ErrNoRows
	}
	s.feed.Publish(ChangeEvent{Table: "recurring_treatments", Type: ChangeUpdate, New: *t})
	return nil
}

// DeleteRecurringTreatment удаляет процедуру. Уже материализованные записи
// не трогаются — они живут своей жизнью.
func (s *Store) DeleteRecurringTreatment(id int64) error {
	old, err := s.GetRecurringTreatmentByID(id)
	if err != nil {
		return err
	}
	if old == nil {
		return sql.ErrNoRows
	}
	if _, err := s.DB.Exec(s.rebind(`DELETE FROM recurring_treatments WHERE id = ?`), id); err != nil {
		return fmt.Errorf("DeleteRecurringTreatment: ошибка при удалении процедуры %d: %w", id, err)
	}
	s.feed.Publish(ChangeEvent{Table: "recurring_treatments", Type: ChangeDelete, Old: *old})
	return nil
}
