package data

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"salon_server_go/models"
)

// CreateClient создает нового клиента. Возвращает ID созданной записи.
func (s *Store) CreateClient(c *models.Client) (int64, error) {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	// RETURNING вместо LastInsertId: lib/pq не реализует LastInsertId,
	// а RETURNING id работает и на sqlite3, и на postgres.
	query := `INSERT INTO clients (name, email, phone, notes, created_at, updated_at)
	          VALUES (:name, :email, :phone, :notes, :created_at, :updated_at)
	          RETURNING id`

	rows, err := s.DB.NamedQuery(query, c)
	if err != nil {
		return 0, fmt.Errorf("CreateClient: ошибка при вставке клиента: %w", err)
	}
	defer rows.Close()

	var newID int64
	if !rows.Next() {
		return 0, fmt.Errorf("CreateClient: вставка не вернула ID")
	}
	if err := rows.Scan(&newID); err != nil {
		return 0, fmt.Errorf("CreateClient: ошибка при получении ID: %w", err)
	}
	c.ID = newID
	s.feed.Publish(ChangeEvent{Table: "clients", Type: ChangeInsert, New: *c})
	return newID, nil
}

// GetClientByID извлекает клиента по ID. Возвращает nil, nil если не найден.
func (s *Store) GetClientByID(id int64) (*models.Client, error) {
	c := &models.Client{}
	query := s.rebind(`SELECT id, name, email, phone, notes, created_at, updated_at FROM clients WHERE id = ?`)
	err := s.DB.Get(c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("GetClientByID: ошибка при получении клиента %d: %w", id, err)
	}
	return c, nil
}

// GetAllClients извлекает всех клиентов.
func (s *Store) GetAllClients() ([]models.Client, error) {
	var list []models.Client
	query := `SELECT id, name, email, phone, notes, created_at, updated_at FROM clients ORDER BY name ASC`
	if err := s.DB.Select(&list, query); err != nil {
		return nil, fmt.Errorf("GetAllClients: ошибка при получении клиентов: %w", err)
	}
	return list, nil
}

// FindClientByName ищет клиента по имени без учета регистра.
// Возвращает nil, nil если не найден.
func (s *Store) FindClientByName(name string) (*models.Client, error) {
	c := &models.Client{}
	query := s.rebind(`SELECT id, name, email, phone, notes, created_at, updated_at
	          FROM clients WHERE LOWER(name) = ? LIMIT 1`)
	err := s.DB.Get(c, query, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("FindClientByName: ошибка поиска клиента '%s': %w", name, err)
	}
	return c, nil
}

// FindClientByContact ищет клиента по email или телефону.
// Возвращает nil, nil если не найден.
func (s *Store) FindClientByContact(email, phone string) (*models.Client, error) {
	if email == "" && phone == "" {
		return nil, nil
	}
	c := &models.Client{}
	query := s.rebind(`SELECT id, name, email, phone, notes, created_at, updated_at
	          FROM clients WHERE (? != '' AND LOWER(email) = ?) OR (? != '' AND phone = ?) LIMIT 1`)
	err := s.DB.Get(c, query, email, strings.ToLower(email), phone, phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("FindClientByContact: ошибка поиска клиента по контактам: %w", err)
	}
	return c, nil
}

// FindOrCreateClient возвращает существующего клиента с таким именем
// (без учета регистра) или контактами, либо создает нового. Это ключевая
// точка дедупликации: форма записи не должна молча плодить дубликаты
// клиентов для одного и того же человека.
func (s *Store) FindOrCreateClient(name, email, phone string) (*models.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("FindOrCreateClient: имя клиента не может быть пустым")
	}

	existing, err := s.FindClientByName(name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		existing, err = s.FindClientByContact(email, phone)
		if err != nil {
			return nil, err
		}
	}
	if existing != nil {
		log.Printf("FindOrCreateClient: найден существующий клиент %d для имени '%s'", existing.ID, name)
		return existing, nil
	}

	c := &models.Client{Name: name}
	if email != "" {
		c.Email = &email
	}
	if phone != "" {
		c.Phone = &phone
	}
	if _, err := s.CreateClient(c); err != nil {
		return nil, err
	}
	log.Printf("FindOrCreateClient: создан новый клиент %d ('%s')", c.ID, name)
	return c, nil
}

// UpdateClient обновляет существующего клиента.
func (s *Store) UpdateClient(c *models.Client) error {
	c.UpdatedAt = time.Now()
	query := `UPDATE clients SET name = :name, email = :email, phone = :phone,
	          notes = :notes, updated_at = :updated_at WHERE id = :id`
	result, err := s.DB.NamedExec(query, c)
	if err != nil {
		return fmt.Errorf("UpdateClient: ошибка при обновлении клиента %d: %w", c.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	s.feed.Publish(ChangeEvent{Table: "clients", Type: ChangeUpdate, New: *c})
	return nil
}

// DeleteClient удаляет клиента по ID. Повторяющиеся процедуры клиента
// удаляются каскадом на уровне схемы.
func (s *Store) DeleteClient(id int64) error {
	old, err := s.GetClientByID(id)
	if err != nil {
		return err
	}
	if old == nil {
		return sql.ErrNoRows
	}
	if _, err := s.DB.Exec(s.rebind(`DELETE FROM clients WHERE id = ?`), id); err != nil {
		return fmt.Errorf("DeleteClient: ошибка при удалении клиента %d: %w", id, err)
	}
	s.feed.Publish(ChangeEvent{Table: "clients", Type: ChangeDelete, Old: *old})
	return nil
}
