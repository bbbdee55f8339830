package data

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"salon_server_go/models"
)

// CreateEmployee создает нового мастера. Возвращает ID созданной записи.
func (s *Store) CreateEmployee(e *models.Employee) (int64, error) {
	if err := e.UpdateJsonProperties(); err != nil {
		return 0, fmt.Errorf("CreateEmployee: ошибка сериализации отпусков: %w", err)
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	// RETURNING вместо LastInsertId: lib/pq не реализует LastInsertId.
	query := `INSERT INTO employees (name, color, specialization, vacations, created_at, updated_at)
	          VALUES (:name, :color, :specialization, :vacations, :created_at, :updated_at)
	          RETURNING id`

	rows, err := s.DB.NamedQuery(query, e)
	if err != nil {
		return 0, fmt.Errorf("CreateEmployee: ошибка при вставке: %w", err)
	}
	defer rows.Close()

	var newID int64
	if !rows.Next() {
		return 0, fmt.Errorf("CreateEmployee: вставка не вернула ID")
	}
	if err := rows.Scan(&newID); err != nil {
		return 0, fmt.Errorf("CreateEmployee: ошибка при получении ID: %w", err)
	}
	e.ID = newID
	s.feed.Publish(ChangeEvent{Table: "employees", Type: ChangeInsert, New: *e})
	log.Printf("Создан мастер с ID: %d (%s)", newID, e.Name)
	return newID, nil
}

// GetEmployeeByID извлекает мастера по ID. Возвращает nil, nil если не найден.
func (s *Store) GetEmployeeByID(id int64) (*models.Employee, error) {
	e := &models.Employee{}
	query := s.rebind(`SELECT id, name, color, specialization, vacations, created_at, updated_at
	          FROM employees WHERE id = ?`)
	err := s.DB.Get(e, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("GetEmployeeByID: ошибка при получении мастера %d: %w", id, err)
	}
	if err := e.LoadJsonProperties(); err != nil {
		return nil, fmt.Errorf("GetEmployeeByID: ошибка десериализации отпусков: %w", err)
	}
	return e, nil
}

// GetAllEmployees извлекает всех мастеров.
func (s *Store) GetAllEmployees() ([]models.Employee, error) {
	var list []models.Employee
	query := `SELECT id, name, color, specialization, vacations, created_at, updated_at
	          FROM employees ORDER BY id ASC`
	if err := s.DB.Select(&list, query); err != nil {
		return nil, fmt.Errorf("GetAllEmployees: ошибка при получении мастеров: %w", err)
	}
	for i := range list {
		if err := list[i].LoadJsonProperties(); err != nil {
			return nil, fmt.Errorf("GetAllEmployees: ошибка десериализации отпусков мастера %d: %w", list[i].ID, err)
		}
	}
	return list, nil
}

// UpdateEmployee обновляет существующего мастера.
func (s *Store) UpdateEmployee(e *models.Employee) error {
	if err := e.UpdateJsonProperties(); err != nil {
		return fmt.Errorf("UpdateEmployee: ошибка сериализации отпусков: %w", err)
	}
	e.UpdatedAt = time.Now()

	query := `UPDATE employees SET name = :name, color = :color, specialization = :specialization,
	          vacations = :vacations, updated_at = :updated_at WHERE id = :id`

	result, err := s.DB.NamedExec(query, e)
	if err != nil {
		return fmt.Errorf("UpdateEmployee: ошибка при обновлении мастера %d: %w", e.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		log.Printf("UpdateEmployee: мастер с ID %d не найден для обновления.", e.ID)
		return sql.ErrNoRows
	}
	s.feed.Publish(ChangeEvent{Table: "employees", Type: ChangeUpdate, New: *e})
	return nil
}

// DeleteEmployee удаляет мастера вместе со всеми его записями (каскад).
// Удаление выполняется в одной транзакции, чтобы не остались записи-сироты.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	old, err := s.GetEmployeeByID(id)
	if err != nil {
		return err
	}
	if old == nil {
		return sql.ErrNoRows
	}

	appts, err := s.GetAppointmentsByEmployeeAndDateRange(id)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteEmployee: ошибка начала транзакции: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(s.rebind(`DELETE FROM appointments WHERE employee_id = ?`), id); err != nil {
		return fmt.Errorf("DeleteEmployee: ошибка при удалении записей мастера %d: %w", id, err)
	}
	if _, err = tx.Exec(s.rebind(`DELETE FROM employees WHERE id = ?`), id); err != nil {
		return fmt.Errorf("DeleteEmployee: ошибка при удалении мастера %d: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("DeleteEmployee: ошибка коммита: %w", err)
	}

	for i := range appts {
		s.feed.Publish(ChangeEvent{Table: "appointments", Type: ChangeDelete, Old: appts[i]})
	}
	s.feed.Publish(ChangeEvent{Table: "employees", Type: ChangeDelete, Old: *old})
	log.Printf("Удален мастер %d вместе с %d записями", id, len(appts))
	return nil
}

// GetAppointmentsByEmployeeAndDateRange извлекает все записи мастера
// (используется каскадным удалением для публикации событий).
func (s *Store) GetAppointmentsByEmployeeAndDateRange(employeeID int64) ([]models.Appointment, error) {
	var list []models.Appointment
	query := s.rebind(`SELECT id, employee_id, date, time, title, client, duration, notes, email, phone, color, service_type, client_id, created_at, updated_at
	          FROM appointments WHERE employee_id = ? ORDER BY date ASC, time ASC`)
	if err := s.DB.Select(&list, query, employeeID); err != nil {
		return nil, fmt.Errorf("GetAppointmentsByEmployeeAndDateRange: ошибка для мастера %d: %w", employeeID, err)
	}
	return list, nil
}
