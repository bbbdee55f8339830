package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"salon_server_go/models"
)

// LocalSettings — локальные данные приложения, живущие вне удаленной БД:
// настройки и каталог услуг. Ровно эта часть заменяется при восстановлении
// из бэкапа.
type LocalSettings struct {
	AppSettings       models.AppSettings  `json:"appSettings"`
	ServiceCategories map[string][]string `json:"serviceCategories"`
}

// SettingsStore сохраняет локальные настройки в JSON-файл. Запись
// атомарная (временный файл + rename), чтение отдает нулевые значения,
// если файла еще нет.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore создает хранилище настроек по указанному пути.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Load читает настройки. Отсутствующий файл дает пустые настройки.
func (s *SettingsStore) Load() (LocalSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out LocalSettings
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("SettingsStore.Load: ошибка чтения '%s': %w", s.path, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("SettingsStore.Load: файл настроек '%s' поврежден: %w", s.path, err)
	}
	return out, nil
}

// Save перезаписывает настройки.
func (s *SettingsStore) Save(settings LocalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("SettingsStore.Save: ошибка сериализации настроек: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("SettingsStore.Save: не удалось создать директорию '%s': %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("SettingsStore.Save: ошибка записи '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("SettingsStore.Save: ошибка переименования '%s': %w", tmp, err)
	}
	return nil
}
