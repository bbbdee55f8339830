package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"salon_server_go/auth"
	"salon_server_go/backup"
	"salon_server_go/config"
	"salon_server_go/controllers"
	"salon_server_go/data"
	"salon_server_go/engine"
	"salon_server_go/middleware"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	auth.SetSigningKey(cfg.JWTSecret)

	// Подключение к хранилищу салона
	store, err := data.OpenStore(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Локальное хранилище резервных копий
	vault, err := backup.OpenVault(cfg.VaultPath)
	if err != nil {
		log.Fatalf("Failed to open backup vault: %v", err)
	}
	defer vault.Close()

	settings := backup.NewSettingsStore(cfg.SettingsPath)
	backupEngine := backup.NewEngine(vault, cfg.ManifestPath, store, settings, cfg.DownloadDir)
	scheduler := backup.NewAutoBackupScheduler(backupEngine)
	if err := scheduler.Resume(); err != nil {
		log.Printf("Warning: could not resume auto-backup: %v", err)
	}
	defer scheduler.Close()

	// Прогретая коллекция записей: лента изменений + периодическая сверка,
	// страховочные снимки через движок бэкапов. Если хранилище и снимок
	// недоступны при старте, сервер работает в режиме прямого чтения.
	cache := engine.NewCacheController(engine.CacheOptions{
		Source:    store,
		Snapshots: backupEngine,
		Feed:      store.Feed(),
	})
	if err := cache.Start(context.Background()); err != nil {
		log.Printf("Warning: appointment cache not started: %v", err)
	}
	defer cache.Close()

	// Профиль таймингов записи для фоновой материализации.
	profile := engine.DesktopProfile()
	if cfg.RuntimeProfile == "mobile" {
		profile = engine.MobileProfile()
	}

	// Фоновая материализация активных процедур на скользящий горизонт.
	matInterval, err := time.ParseDuration(cfg.MaterializeInterval)
	if err != nil || matInterval <= 0 {
		matInterval = time.Hour
	}
	horizonDays, err := strconv.Atoi(cfg.MaterializeHorizonDays)
	if err != nil || horizonDays <= 0 {
		horizonDays = 60
	}
	materializer := engine.NewMaterializer(store,
		engine.NewOrchestrator(engine.NewWriteExecutor(store, profile)),
		time.Duration(horizonDays)*24*time.Hour)
	materializer.Start(matInterval)
	defer materializer.Close()

	storeCtrl := &controllers.StoreController{Store: store, Cache: cache}
	saveCtrl := &controllers.SaveController{Store: store, Cache: cache, ProfileOverride: cfg.RuntimeProfile}
	tokenCtrl := &controllers.TokenController{ProvisionKey: cfg.ProvisionKey, TokenTTL: 30 * 24 * time.Hour}
	eventsCtrl := &controllers.EventsController{Store: store}
	backupCtrl := &controllers.BackupController{Engine: backupEngine, Scheduler: scheduler}

	router := mux.NewRouter()

	// Все маршруты /api защищены сервисным токеном
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.JWTMiddleware)

	// Записи
	apiRouter.HandleFunc("/appointments", storeCtrl.ListAppointments).Methods(http.MethodGet)
	apiRouter.HandleFunc("/appointments", storeCtrl.CreateAppointment).Methods(http.MethodPost)
	apiRouter.HandleFunc("/appointments/batch", saveCtrl.BatchSave).Methods(http.MethodPost)
	apiRouter.HandleFunc("/appointments/{id}", storeCtrl.GetAppointment).Methods(http.MethodGet)
	apiRouter.HandleFunc("/appointments/{id}", storeCtrl.UpdateAppointment).Methods(http.MethodPut)
	apiRouter.HandleFunc("/appointments/{id}", storeCtrl.DeleteAppointment).Methods(http.MethodDelete)

	// Мастера (удаление каскадом убирает их записи)
	apiRouter.HandleFunc("/employees", storeCtrl.ListEmployees).Methods(http.MethodGet)
	apiRouter.HandleFunc("/employees", storeCtrl.CreateEmployee).Methods(http.MethodPost)
	apiRouter.HandleFunc("/employees/{id:[0-9]+}", storeCtrl.UpdateEmployee).Methods(http.MethodPut)
	apiRouter.HandleFunc("/employees/{id:[0-9]+}", storeCtrl.DeleteEmployee).Methods(http.MethodDelete)

	// Клиенты (создание идет через find-or-create)
	apiRouter.HandleFunc("/clients", storeCtrl.ListClients).Methods(http.MethodGet)
	apiRouter.HandleFunc("/clients", storeCtrl.CreateClient).Methods(http.MethodPost)
	apiRouter.HandleFunc("/clients/{id:[0-9]+}", storeCtrl.UpdateClient).Methods(http.MethodPut)
	apiRouter.HandleFunc("/clients/{id:[0-9]+}", storeCtrl.DeleteClient).Methods(http.MethodDelete)

	// Повторяющиеся процедуры и их материализация
	apiRouter.HandleFunc("/recurring-treatments", storeCtrl.ListRecurringTreatments).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recurring-treatments", storeCtrl.CreateRecurringTreatment).Methods(http.MethodPost)
	apiRouter.HandleFunc("/recurring-treatments/{id:[0-9]+}", storeCtrl.UpdateRecurringTreatment).Methods(http.MethodPut)
	apiRouter.HandleFunc("/recurring-treatments/{id:[0-9]+}", storeCtrl.DeleteRecurringTreatment).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/recurring-treatments/{id:[0-9]+}/materialize", saveCtrl.Materialize).Methods(http.MethodPost)

	// Каталог услуг
	apiRouter.HandleFunc("/custom-services/{userId}", storeCtrl.GetCustomServices).Methods(http.MethodGet)
	apiRouter.HandleFunc("/custom-services/{userId}", storeCtrl.SaveCustomServices).Methods(http.MethodPut)

	// Realtime-лента изменений
	apiRouter.HandleFunc("/events", eventsCtrl.Stream).Methods(http.MethodGet)

	// Резервные копии
	apiRouter.HandleFunc("/backup", backupCtrl.CreateBackup).Methods(http.MethodPost)
	apiRouter.HandleFunc("/backups", backupCtrl.ListBackups).Methods(http.MethodGet)
	apiRouter.HandleFunc("/backup/download/latest", backupCtrl.DownloadLatest).Methods(http.MethodGet)
	apiRouter.HandleFunc("/backup/restore", backupCtrl.Restore).Methods(http.MethodPost)
	apiRouter.HandleFunc("/backup/auto", backupCtrl.ConfigureAutoBackup).Methods(http.MethodPut)

	// Маршрут для проверки состояния сервера (открытый, без JWT)
	router.HandleFunc("/api/Service/status", controllers.HealthCheck).Methods(http.MethodGet)

	// Выдача токена устройству по ключу провижининга (открытый, без JWT)
	router.HandleFunc("/api/Service/token", tokenCtrl.IssueToken).Methods(http.MethodPost)

	log.Printf("Запуск сервера на %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatal(err)
	}
}
