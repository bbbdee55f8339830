package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Встраиваемый драйвер SQLite без cgo для локального хранилища
)

// Vault — локальное встраиваемое key-value хранилище блобов бэкапов.
// Полезные нагрузки доходят до мегабайт, поэтому лежат здесь, а не в
// манифесте; манифест держит только метаданные для быстрого списка.
type Vault struct {
	db *sql.DB
}

// OpenVault открывает (и при необходимости создает) файл хранилища.
func OpenVault(path string) (*Vault, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("OpenVault: не удалось создать директорию '%s': %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("OpenVault: не удалось открыть хранилище '%s': %w", path, err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backup_payloads (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("OpenVault: не удалось применить схему хранилища: %w", err)
		}
	}
	return &Vault{db: db}, nil
}

// Put сохраняет блоб под ключом, перезаписывая существующий.
func (v *Vault) Put(key string, payload []byte) error {
	_, err := v.db.Exec(`INSERT INTO backup_payloads (key, payload, created_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		key, payload, time.Now())
	if err != nil {
		return fmt.Errorf("Vault.Put: ошибка записи блоба '%s': %w", key, err)
	}
	return nil
}

// Get возвращает блоб по ключу. Возвращает nil, nil если ключа нет.
func (v *Vault) Get(key string) ([]byte, error) {
	var payload []byte
	err := v.db.QueryRow(`SELECT payload FROM backup_payloads WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("Vault.Get: ошибка чтения блоба '%s': %w", key, err)
	}
	return payload, nil
}

// Delete удаляет блоб по ключу. Отсутствующий ключ — не ошибка.
func (v *Vault) Delete(key string) error {
	if _, err := v.db.Exec(`DELETE FROM backup_payloads WHERE key = ?`, key); err != nil {
		return fmt.Errorf("Vault.Delete: ошибка удаления блоба '%s': %w", key, err)
	}
	return nil
}

// Close закрывает файл хранилища.
func (v *Vault) Close() error {
	return v.db.Close()
}
