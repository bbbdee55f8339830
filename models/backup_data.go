package models

import "time"

// Типы резервных копий.
const (
	BackupTypeManual    = "manual"
	BackupTypeAutomatic = "automatic"
)

// BackupFormatVersion — версия формата полезной нагрузки бэкапа.
const BackupFormatVersion = "2.0"

// BackupEntry — запись манифеста: легковесные метаданные одной копии.
// Сама полезная нагрузка лежит в локальном хранилище (vault) под Key.
type BackupEntry struct {
	Date string `json:"date"` // ISO-метка времени создания
	Type string `json:"type"` // manual | automatic
	Key  string `json:"key"`  // ключ блоба в vault
}

// BackupMetadata описывает происхождение и состав снимка.
type BackupMetadata struct {
	Version   string   `json:"version"`
	Created   string   `json:"created"`
	Type      string   `json:"type"`
	Source    string   `json:"source"`
	DataTypes []string `json:"dataTypes"`
}

// AppSettings — локальные настройки приложения, не хранящиеся в удаленной БД.
// Именно они (и только они) восстанавливаются из бэкапа.
type AppSettings struct {
	AutoBackupEnabled  bool   `json:"autoBackupEnabled"`
	AutoBackupInterval string `json:"autoBackupInterval"` // duration-строка, напр. "24h" или "30s" для тестов
	Theme              string `json:"theme,omitempty"`
	Language           string `json:"language,omitempty"`
}

// BackupDataSet — полный состав снимка: таблицы удаленной БД плюс
// локальные данные. Имена JSON-полей должны совпадать с тем, что
// ожидает клиентское приложение.
type BackupDataSet struct {
	Appointments        []Appointment        `json:"appointments"`
	Employees           []Employee           `json:"employees"`
	Clients             []Client             `json:"clients"`
	Services            []string             `json:"services"`
	RecurringTreatments []RecurringTreatment `json:"recurringTreatments"`
	Vacations           map[string][]string  `json:"vacations"`  // employeeID (строкой) -> даты
	Statistics          map[string]int       `json:"statistics"` // счетчики по мастерам/услугам
	AppointmentHistory  []Appointment        `json:"appointmentHistory"`
	AppSettings         AppSettings          `json:"appSettings"`
	ServiceCategories   map[string][]string  `json:"serviceCategories"`
	Metadata            BackupMetadata       `json:"metadata"`
}

// BackupData — версионированная полезная нагрузка одной резервной копии.
type BackupData struct {
	Date time.Time     `json:"date"`
	Type string        `json:"type"`
	Data BackupDataSet `json:"data"`
}
