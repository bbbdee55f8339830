package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"salon_server_go/engine"
	"salon_server_go/models"
)

// retentionMonths — глубина хранения: копии старше выбрасываются вместе с
// блобами при каждом создании новой.
const retentionMonths = 12

// snapshotKey — ключ скользящего страховочного снимка коллекции записей
// (перезаписывается при каждой успешной сверке кэша).
const snapshotKey = "snapshot-latest"

// DataSource — часть хранилища, которую движок бэкапов умеет собирать в
// снимок. Реализуется data.Store.
type DataSource interface {
	GetAllAppointments(ctx context.Context) ([]models.Appointment, error)
	GetAllEmployees() ([]models.Employee, error)
	GetAllClients() ([]models.Client, error)
	GetAllRecurringTreatments() ([]models.RecurringTreatment, error)
}

// Engine создает и восстанавливает резервные копии. Бэкап захватывает всё
// (таблицы удаленной БД + локальные настройки); восстановление заменяет
// только локальные настройки — молчаливая перезапись общих данных
// недопустима. Асимметрия сознательная.
type Engine struct {
	mu          sync.Mutex
	vault       *Vault
	manifest    string
	source      DataSource
	settings    *SettingsStore
	downloadDir string
	now         func() time.Time
}

// NewEngine собирает движок бэкапов. now доступен для подмены в тестах
// ретеншена.
func NewEngine(vault *Vault, manifestPath string, source DataSource, settings *SettingsStore, downloadDir string) *Engine {
	return &Engine{
		vault:       vault,
		manifest:    manifestPath,
		source:      source,
		settings:    settings,
		downloadDir: downloadDir,
		now:         time.Now,
	}
}

// CreateBackup собирает полный снимок и кладет его в локальное хранилище.
// Сбор данных обернут в общий ретрай-комбинатор: сетевые сбои при съеме
// снимка ретраятся так же, как записи.
func (e *Engine) CreateBackup(ctx context.Context, backupType string) (*models.BackupEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dataset *models.BackupDataSet
	err := engine.WithRetry(ctx, engine.RetryOptions{Attempts: 3, Delay: time.Second}, func(ctx context.Context) error {
		var err error
		dataset, err = e.collectDataset(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("CreateBackup: не удалось собрать данные для копии: %w", err)
	}

	created := e.now()
	dataset.Metadata = models.BackupMetadata{
		Version: models.BackupFormatVersion,
		Created: created.Format(time.RFC3339),
		Type:    backupType,
		Source:  "salon_server_go",
		DataTypes: []string{
			"appointments", "employees", "clients", "services",
			"recurringTreatments", "vacations", "statistics",
			"appointmentHistory", "appSettings", "serviceCategories",
		},
	}

	payload, err := json.Marshal(models.BackupData{Date: created, Type: backupType, Data: *dataset})
	if err != nil {
		return nil, fmt.Errorf("CreateBackup: ошибка сериализации копии: %w", err)
	}

	entry := models.BackupEntry{
		Date: created.Format(time.RFC3339),
		Type: backupType,
		Key:  "backup-" + created.Format("20060102-150405.000"),
	}
	if err := e.vault.Put(entry.Key, payload); err != nil {
		return nil, fmt.Errorf("CreateBackup: %w", err)
	}

	entries, err := loadManifest(e.manifest)
	if err != nil {
		return nil, fmt.Errorf("CreateBackup: %w", err)
	}
	entries = append(entries, entry)
	entries = e.pruneExpired(entries)
	if err := saveManifest(e.manifest, entries); err != nil {
		return nil, fmt.Errorf("CreateBackup: %w", err)
	}

	log.Printf("CreateBackup: создана %s-копия %s (%d байт)", backupType, entry.Key, len(payload))
	return &entry, nil
}

// collectDataset снимает таблицы хранилища и локальные настройки.
func (e *Engine) collectDataset(ctx context.Context) (*models.BackupDataSet, error) {
	appointments, err := e.source.GetAllAppointments(ctx)
	if err != nil {
		return nil, err
	}
	employees, err := e.source.GetAllEmployees()
	if err != nil {
		return nil, err
	}
	clients, err := e.source.GetAllClients()
	if err != nil {
		return nil, err
	}
	treatments, err := e.source.GetAllRecurringTreatments()
	if err != nil {
		return nil, err
	}
	local, err := e.settings.Load()
	if err != nil {
		return nil, err
	}

	today := e.now().Format("2006-01-02")
	var history []models.Appointment
	for _, a := range appointments {
		if a.Date < today {
			history = append(history, a)
		}
	}

	vacations := make(map[string][]string, len(employees))
	statistics := map[string]int{
		"appointments": len(appointments),
		"employees":    len(employees),
		"clients":      len(clients),
	}
	for _, emp := range employees {
		vacations[strconv.FormatInt(emp.ID, 10)] = emp.Vacations
	}
	for _, a := range appointments {
		statistics["employee:"+strconv.FormatInt(a.EmployeeID, 10)]++
		statistics["service:"+a.ServiceType]++
	}

	var services []string
	for _, list := range local.ServiceCategories {
		services = append(services, list...)
	}

	return &models.BackupDataSet{
		Appointments:        appointments,
		Employees:           employees,
		Clients:             clients,
		Services:            services,
		RecurringTreatments: treatments,
		Vacations:           vacations,
		Statistics:          statistics,
		AppointmentHistory:  history,
		AppSettings:         local.AppSettings,
		ServiceCategories:   local.ServiceCategories,
	}, nil
}

// pruneExpired выкидывает из манифеста записи старше retentionMonths
// месяцев и удаляет их блобы.
func (e *Engine) pruneExpired(entries []models.BackupEntry) []models.BackupEntry {
	cutoff := e.now().AddDate(0, -retentionMonths, 0)
	kept := entries[:0]
	for _, entry := range entries {
		created, err := time.Parse(time.RFC3339, entry.Date)
		if err == nil && created.Before(cutoff) {
			if err := e.vault.Delete(entry.Key); err != nil {
				log.Printf("pruneExpired: не удалось удалить блоб '%s': %v", entry.Key, err)
			}
			log.Printf("pruneExpired: удалена устаревшая копия %s от %s", entry.Key, entry.Date)
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

// ListBackups возвращает метаданные всех копий, новые первыми.
func (e *Engine) ListBackups() ([]models.BackupEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries, err := loadManifest(e.manifest)
	if err != nil {
		return nil, err
	}
	// Манифест пишется в порядке создания; разворачиваем.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// DownloadBackupFile материализует сохраненную копию в файл и возвращает
// его путь. Имя по умолчанию — backup-<дата>.json с очищенными
// недопустимыми символами.
func (e *Engine) DownloadBackupFile(entry models.BackupEntry, filename string) (string, error) {
	payload, err := e.vault.Get(entry.Key)
	if err != nil {
		return "", fmt.Errorf("DownloadBackupFile: %w", err)
	}
	if payload == nil {
		return "", fmt.Errorf("DownloadBackupFile: блоб копии '%s' не найден", entry.Key)
	}

	if filename == "" {
		sanitized := strings.NewReplacer(":", "-", "/", "-", " ", "_").Replace(entry.Date)
		filename = "backup-" + sanitized + ".json"
	}
	if err := os.MkdirAll(e.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("DownloadBackupFile: не удалось создать директорию '%s': %w", e.downloadDir, err)
	}
	path := filepath.Join(e.downloadDir, filename)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("DownloadBackupFile: ошибка записи файла '%s': %w", path, err)
	}
	log.Printf("DownloadBackupFile: копия %s выгружена в %s", entry.Key, path)
	return path, nil
}

// RestoreBackup восстанавливает из копии только локальные настройки
// (настройки приложения и каталог услуг). Таблицы удаленного хранилища не
// трогаются.
func (e *Engine) RestoreBackup(entry models.BackupEntry) error {
	payload, err := e.vault.Get(entry.Key)
	if err != nil {
		return fmt.Errorf("RestoreBackup: %w", err)
	}
	if payload == nil {
		return fmt.Errorf("RestoreBackup: блоб копии '%s' не найден", entry.Key)
	}

	var bd models.BackupData
	if err := json.Unmarshal(payload, &bd); err != nil {
		return fmt.Errorf("RestoreBackup: копия '%s' повреждена: %w", entry.Key, err)
	}

	if err := e.settings.Save(LocalSettings{
		AppSettings:       bd.Data.AppSettings,
		ServiceCategories: bd.Data.ServiceCategories,
	}); err != nil {
		return fmt.Errorf("RestoreBackup: не удалось применить настройки: %w", err)
	}
	log.Printf("RestoreBackup: локальные настройки восстановлены из копии %s", entry.Key)
	return nil
}

// SnapshotAppointments пишет скользящий страховочный снимок коллекции
// записей. Вызывается кэшем после каждой успешной сверки.
func (e *Engine) SnapshotAppointments(appts []models.Appointment) error {
	b, err := json.Marshal(appts)
	if err != nil {
		return fmt.Errorf("SnapshotAppointments: ошибка сериализации снимка: %w", err)
	}
	return e.vault.Put(snapshotKey, b)
}

// LatestAppointments возвращает записи из скользящего снимка, а если его
// нет — из самой свежей полной копии. Путь восстановления кэша при
// недоступном хранилище.
func (e *Engine) LatestAppointments() ([]models.Appointment, error) {
	b, err := e.vault.Get(snapshotKey)
	if err != nil {
		return nil, err
	}
	if b != nil {
		var appts []models.Appointment
		if err := json.Unmarshal(b, &appts); err != nil {
			return nil, fmt.Errorf("LatestAppointments: снимок поврежден: %w", err)
		}
		return appts, nil
	}

	entries, err := e.ListBackups()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("LatestAppointments: локальных копий нет")
	}
	payload, err := e.vault.Get(entries[0].Key)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("LatestAppointments: блоб копии '%s' не найден", entries[0].Key)
	}
	var bd models.BackupData
	if err := json.Unmarshal(payload, &bd); err != nil {
		return nil, fmt.Errorf("LatestAppointments: копия повреждена: %w", err)
	}
	return bd.Data.Appointments, nil
}
