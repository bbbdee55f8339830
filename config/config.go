package config

import (
	"os"
)

// Config — конфигурация сервера. Значения читаются из переменных окружения
// один раз при старте; дефолты рассчитаны на локальную разработку
// (SQLite-файлы рядом с бинарником).
type Config struct {
	ListenAddr string // адрес HTTP-сервера
	DBDriver   string // "sqlite3" (dev/test) или "postgres" (hosted)
	DBDSN      string // строка подключения
	JWTSecret  string // ключ подписи сервисных токенов

	VaultPath    string // файл локального хранилища бэкапов
	ManifestPath string // JSON-манифест метаданных бэкапов
	SettingsPath string // JSON-файл локальных настроек
	DownloadDir  string // директория выгрузки файлов бэкапов

	RuntimeProfile string // "desktop" | "mobile" | "" (автоопределение по запросу)

	ProvisionKey string // ключ выдачи сервисных токенов устройствам

	MaterializeInterval    string // период прохода материализации, duration-строка
	MaterializeHorizonDays string // горизонт материализации вперед, в днях
}

// Load читает конфигурацию из окружения.
func Load() Config {
	return Config{
		ListenAddr:     getEnv("SALON_LISTEN_ADDR", ":8080"),
		DBDriver:       getEnv("SALON_DB_DRIVER", "sqlite3"),
		DBDSN:          getEnv("SALON_DB_DSN", "SalonServer.db"),
		JWTSecret:      getEnv("SALON_JWT_SECRET", "dev_secret_change_me"),
		VaultPath:      getEnv("SALON_VAULT_PATH", "SalonBackups.db"),
		ManifestPath:   getEnv("SALON_MANIFEST_PATH", "backup_manifest.json"),
		SettingsPath:   getEnv("SALON_SETTINGS_PATH", "app_settings.json"),
		DownloadDir:    getEnv("SALON_DOWNLOAD_DIR", "backup_downloads"),
		RuntimeProfile: getEnv("SALON_RUNTIME_PROFILE", ""),

		ProvisionKey: getEnv("SALON_PROVISION_KEY", "dev_provision_change_me"),

		MaterializeInterval:    getEnv("SALON_MATERIALIZE_INTERVAL", "1h"),
		MaterializeHorizonDays: getEnv("SALON_MATERIALIZE_HORIZON_DAYS", "60"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
