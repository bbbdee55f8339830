package backup

import (
	"context"
	"log"
	"sync"
	"time"

	"salon_server_go/models"
)

// AutoBackupScheduler периодически вызывает CreateBackup("automatic").
// Интервал настраивается от секунд (тесты) до часов/суток (продакшен).
// Включение и выключение идемпотентны и сохраняются в локальных
// настройках, чтобы пережить перезапуск приложения.
type AutoBackupScheduler struct {
	mu     sync.Mutex
	engine *Engine
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewAutoBackupScheduler создает планировщик поверх движка бэкапов.
func NewAutoBackupScheduler(e *Engine) *AutoBackupScheduler {
	return &AutoBackupScheduler{engine: e}
}

// Resume включает планировщик, если включенность сохранена в настройках.
// Вызывается при старте приложения.
func (s *AutoBackupScheduler) Resume() error {
	local, err := s.engine.settings.Load()
	if err != nil {
		return err
	}
	if !local.AppSettings.AutoBackupEnabled {
		return nil
	}
	interval, err := time.ParseDuration(local.AppSettings.AutoBackupInterval)
	if err != nil || interval <= 0 {
		log.Printf("AutoBackupScheduler: неверный сохраненный интервал '%s', автобэкап не возобновлен", local.AppSettings.AutoBackupInterval)
		return nil
	}
	return s.start(interval)
}

// Enable включает автобэкап с указанным интервалом и сохраняет выбор.
// Повторный вызов перезапускает таймер с новым интервалом.
func (s *AutoBackupScheduler) Enable(interval time.Duration) error {
	if err := s.persist(true, interval); err != nil {
		return err
	}
	s.stopLocked()
	return s.start(interval)
}

// Disable выключает автобэкап и сохраняет выбор. Вызов при выключенном
// планировщике — no-op.
func (s *AutoBackupScheduler) Disable() error {
	if err := s.persist(false, 0); err != nil {
		return err
	}
	s.stopLocked()
	return nil
}

// Close останавливает таймер без изменения сохраненных настроек.
func (s *AutoBackupScheduler) Close() {
	s.stopLocked()
}

// Running сообщает, запущен ли таймер.
func (s *AutoBackupScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

func (s *AutoBackupScheduler) start(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return nil // уже запущен
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(interval, s.stopCh, s.doneCh)
	log.Printf("AutoBackupScheduler: автобэкап включен, интервал %v", interval)
	return nil
}

// stopLocked останавливает таймер и дожидается выхода горутины: после
// возврата ни один тик не сработает.
func (s *AutoBackupScheduler) stopLocked() {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
		log.Println("AutoBackupScheduler: автобэкап остановлен")
	}
}

func (s *AutoBackupScheduler) loop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := s.engine.CreateBackup(context.Background(), models.BackupTypeAutomatic); err != nil {
				log.Printf("AutoBackupScheduler: автоматическая копия не создана: %v", err)
			}
		}
	}
}

// persist сохраняет включенность и интервал в локальных настройках.
func (s *AutoBackupScheduler) persist(enabled bool, interval time.Duration) error {
	local, err := s.engine.settings.Load()
	if err != nil {
		return err
	}
	local.AppSettings.AutoBackupEnabled = enabled
	if enabled {
		local.AppSettings.AutoBackupInterval = interval.String()
	}
	return s.engine.settings.Save(local)
}
