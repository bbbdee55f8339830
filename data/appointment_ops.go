package data

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"salon_server_go/models"
)

// CreateAppointment вставляет новую запись. Вставка идемпотентна по ID:
// повторная попытка с тем же ID не создает дубликата и не считается
// ошибкой (так ведет себя ретрай, у которого первая попытка на самом
// деле дошла до хранилища).
func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `INSERT INTO appointments (id, employee_id, date, time, title, client, duration, notes, email, phone, color, service_type, client_id, created_at, updated_at)
	          VALUES (:id, :employee_id, :date, :time, :title, :client, :duration, :notes, :email, :phone, :color, :service_type, :client_id, :created_at, :updated_at)
	          ON CONFLICT (id) DO NOTHING`

	result, err := s.DB.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("CreateAppointment: ошибка при вставке записи %s: %w", a.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		log.Printf("CreateAppointment: запись %s уже существует, вставка пропущена", a.ID)
		return nil
	}
	s.feed.Publish(ChangeEvent{Table: "appointments", Type: ChangeInsert, New: *a})
	return nil
}

// UpsertAppointment вставляет запись или обновляет существующую с тем же ID.
// Это основной путь записи для батч-сохранения и повторной материализации
// повторяющихся процедур.
func (s *Store) UpsertAppointment(ctx context.Context, a *models.Appointment) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	existing, err := s.GetAppointmentByID(a.ID)
	if err != nil {
		return fmt.Errorf("UpsertAppointment: ошибка при проверке записи %s: %w", a.ID, err)
	}

	query := `INSERT INTO appointments (id, employee_id, date, time, title, client, duration, notes, email, phone, color, service_type, client_id, created_at, updated_at)
	          VALUES (:id, :employee_id, :date, :time, :title, :client, :duration, :notes, :email, :phone, :color, :service_type, :client_id, :created_at, :updated_at)
	          ON CONFLICT (id) DO UPDATE SET
	          employee_id = excluded.employee_id, date = excluded.date, time = excluded.time,
	          title = excluded.title, client = excluded.client, duration = excluded.duration,
	          notes = excluded.notes, email = excluded.email, phone = excluded.phone,
	          color = excluded.color, service_type = excluded.service_type,
	          client_id = excluded.client_id, updated_at = excluded.updated_at`

	if _, err := s.DB.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("UpsertAppointment: ошибка при сохранении записи %s: %w", a.ID, err)
	}

	if existing == nil {
		s.feed.Publish(ChangeEvent{Table: "appointments", Type: ChangeInsert, New: *a})
	} else {
		s.feed.Publish(ChangeEvent{Table: "appointments", Type: ChangeUpdate, New: *a, Old: *existing})
	}
	return nil
}

// GetAppointmentByID извлекает запись по ID. Возвращает nil, nil если
// записи нет.
func (s *Store) GetAppointmentByID(id string) (*models.Appointment, error) {
	a := &models.Appointment{}
	query := s.rebind(`SELECT id, employee_id, date, time, title, client, duration, notes, email, phone, color, service_type, client_id, created_at, updated_at
	          FROM appointments WHERE id = ?`)
	err := s.DB.Get(a, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Не найдено
		}
		return nil, fmt.Errorf("GetAppointmentByID: ошибка при получении записи %s: %w", id, err)
	}
	return a, nil
}

// GetAllAppointments извлекает все записи, отсортированные по дате и времени.
func (s *Store) GetAllAppointments(ctx context.Context) ([]models.Appointment, error) {
	var list []models.Appointment
	query := `SELECT id, employee_id, date, time, title, client, duration, notes, email, phone, color, service_type, client_id, created_at, updated_at
	          FROM appointments ORDER BY date ASC, time ASC`
	if err := s.DB.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("GetAllAppointments: ошибка при получении записей: %w", err)
	}
	return list, nil
}

// GetAppointmentsByEmployeeAndDate извлекает записи одного мастера на одну
// дату — входные данные для проверки пересечений.
func (s *Store) GetAppointmentsByEmployeeAndDate(employeeID int64, date string) ([]models.Appointment, error) {
	var list []models.Appointment
	query := s.rebind(`SELECT id, employee_id, date, time, title, client, duration, notes, email, phone, color, service_type, client_id, created_at, updated_at
	          FROM appointments WHERE employee_id = ? AND date = ? ORDER BY time ASC`)
	if err := s.DB.Select(&list, query, employeeID, date); err != nil {
		return nil, fmt.Errorf("GetAppointmentsByEmployeeAndDate: ошибка для мастера %d, даты %s: %w", employeeID, date, err)
	}
	return list, nil
}

// UpdateAppointment обновляет существующую запись по ID.
func (s *Store) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	a.UpdatedAt = time.Now()

	old, err := s.GetAppointmentByID(a.ID)
	if err != nil {
		return err
	}
	if old == nil {
		return sql.ErrNoRows
	}

	query := `UPDATE appointments SET
	          employee_id = :employee_id, date = :date, time = :time, title = :title,
	          client = :client, duration = :duration, notes = :notes, email = :email,
	          phone = :phone, color = :color, service_type = :service_type,
	          client_id = :client_id, updated_at = :updated_at
	          WHERE id = :id`

	if _, err := s.DB.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("UpdateAppointment: ошибка при обновлении записи %s: %w", a.ID, err)
	}
	s.feed.Publish(ChangeEvent{Table: "appointments", Type: ChangeUpdate, New: *a, Old: *old})
	return nil
}

// DeleteAppointment удаляет запись по ID.
func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	old, err := s.GetAppointmentByID(id)
	if err != nil {
		return err
	}
	if old == nil {
		log.Printf("DeleteAppointment: запись %s не найдена для удаления", id)
		return sql.ErrNoRows
	}

	query := s.rebind(`DELETE FROM appointments WHERE id = ?`)
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("DeleteAppointment: ошибка при удалении записи %s: %w", id, err)
	}
	s.feed.Publish(ChangeEvent{Table: "appointments", Type: ChangeDelete, Old: *old})
	return nil
}

// CountAppointments возвращает число записей в таблице.
func (s *Store) CountAppointments() (int, error) {
	var n int
	if err := s.DB.Get(&n, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, fmt.Errorf("CountAppointments: %w", err)
	}
	return n, nil
}
