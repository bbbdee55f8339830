package controllers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"salon_server_go/backup"
	"salon_server_go/models"
)

// BackupController управляет локальными резервными копиями: создание,
// список, выгрузка файлом, восстановление локальных настроек и
// планировщик автобэкапа.
type BackupController struct {
	Engine    *backup.Engine
	Scheduler *backup.AutoBackupScheduler
}

// CreateBackup обрабатывает POST /api/backup — ручное создание копии.
func (c *BackupController) CreateBackup(w http.ResponseWriter, r *http.Request) {
	entry, err := c.Engine.CreateBackup(r.Context(), models.BackupTypeManual)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось создать резервную копию: "+err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// ListBackups обрабатывает GET /api/backups — метаданные без полезной
// нагрузки, новые первыми.
func (c *BackupController) ListBackups(w http.ResponseWriter, r *http.Request) {
	entries, err := c.Engine.ListBackups()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить список копий: "+err.Error())
		return
	}
	if entries == nil {
		entries = []models.BackupEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// DownloadLatest обрабатывает GET /api/backup/download/latest — отдает
// файл последней копии.
func (c *BackupController) DownloadLatest(w http.ResponseWriter, r *http.Request) {
	entries, err := c.Engine.ListBackups()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить список копий: "+err.Error())
		return
	}
	if len(entries) == 0 {
		respondError(w, http.StatusNotFound, "Резервных копий еще нет.")
		return
	}

	path, err := c.Engine.DownloadBackupFile(entries[0], r.URL.Query().Get("filename"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось выгрузить копию: "+err.Error())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось открыть файл копии: "+err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	http.ServeContent(w, r, filepath.Base(path), time.Now(), f)
}

// RestoreRequest — тело запроса восстановления: ключ копии из манифеста.
type RestoreRequest struct {
	Key string `json:"key"`
}

// Restore обрабатывает POST /api/backup/restore. Восстанавливаются только
// локальные настройки; таблицы хранилища копия не перезаписывает.
func (c *BackupController) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := c.Engine.RestoreBackup(models.BackupEntry{Key: req.Key}); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось восстановить настройки: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// AutoBackupRequest — тело запроса настройки автобэкапа.
type AutoBackupRequest struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval"` // duration-строка, напр. "24h" или "30s"
}

// ConfigureAutoBackup обрабатывает PUT /api/backup/auto. Включение и
// выключение идемпотентны; выбор переживает перезапуск.
func (c *BackupController) ConfigureAutoBackup(w http.ResponseWriter, r *http.Request) {
	var req AutoBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if !req.Enabled {
		if err := c.Scheduler.Disable(); err != nil {
			respondError(w, http.StatusInternalServerError, "Не удалось выключить автобэкап: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	interval, err := time.ParseDuration(req.Interval)
	if err != nil || interval <= 0 {
		respondError(w, http.StatusBadRequest, "Неверный интервал автобэкапа: "+req.Interval)
		return
	}
	if err := c.Scheduler.Enable(interval); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось включить автобэкап: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "enabled", "interval": interval.String()})
}
