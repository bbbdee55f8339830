package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"salon_server_go/models"
)

// loadManifest читает список метаданных бэкапов. Отсутствующий файл — не
// ошибка: значит, бэкапов еще не было.
func loadManifest(path string) ([]models.BackupEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loadManifest: ошибка чтения манифеста '%s': %w", path, err)
	}
	var entries []models.BackupEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("loadManifest: манифест '%s' поврежден: %w", path, err)
	}
	return entries, nil
}

// saveManifest атомарно перезаписывает манифест (временный файл + rename),
// чтобы оборванная запись не оставила манифест наполовину записанным.
func saveManifest(path string, entries []models.BackupEntry) error {
	if entries == nil {
		entries = []models.BackupEntry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("saveManifest: ошибка сериализации манифеста: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("saveManifest: не удалось создать директорию '%s': %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("saveManifest: ошибка записи '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("saveManifest: ошибка переименования '%s': %w", tmp, err)
	}
	return nil
}
