package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"salon_server_go/data"
	"salon_server_go/models"
)

// AppointmentSource — источник полного списка записей (периодическое
// полное обновление и первичная загрузка).
type AppointmentSource interface {
	GetAllAppointments(ctx context.Context) ([]models.Appointment, error)
}

// SnapshotStore — локальное страховочное хранилище: снимок после каждой
// успешной сверки, последний снимок — путь восстановления при недоступном
// хранилище.
type SnapshotStore interface {
	SnapshotAppointments(appts []models.Appointment) error
	LatestAppointments() ([]models.Appointment, error)
}

// CacheController владеет in-memory коллекцией записей. Три потока ввода —
// оптимистичные локальные правки, realtime-события хранилища и
// периодическое полное обновление — сходятся в одном редьюсере
// applyChange; коллекцию больше никто не мутирует. Раньше каждый поток
// писал состояние сам, и они гонялись друг с другом.
type CacheController struct {
	mu           sync.Mutex
	appointments []models.Appointment
	ready        bool

	source    AppointmentSource
	snapshots SnapshotStore // может быть nil
	feed      *data.ChangeFeed
	refresh   time.Duration
	onChange  func([]models.Appointment) // уведомление UI; может быть nil

	subID   int64
	events  <-chan data.ChangeEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	closed  bool
}

// CacheOptions — зависимости и настройки контроллера.
type CacheOptions struct {
	Source          AppointmentSource
	Snapshots       SnapshotStore
	Feed            *data.ChangeFeed
	RefreshInterval time.Duration
	OnChange        func([]models.Appointment)
}

// NewCacheController создает контроллер. Start запускает загрузку и фоновые
// потоки; Close обязателен при уходе с экрана, иначе таймеры утекут.
func NewCacheController(opts CacheOptions) *CacheController {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	return &CacheController{
		source:    opts.Source,
		snapshots: opts.Snapshots,
		feed:      opts.Feed,
		refresh:   opts.RefreshInterval,
		onChange:  opts.OnChange,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start выполняет первичную загрузку (с откатом на локальный снимок при
// недоступном хранилище) и запускает подписку на realtime-события и
// периодическое обновление.
func (c *CacheController) Start(ctx context.Context) error {
	if err := c.refreshOnce(ctx); err != nil {
		return err
	}

	if c.feed != nil {
		c.subID, c.events = c.feed.Subscribe()
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go c.loop(ctx)
	return nil
}

// loop — единственная горутина, доставляющая события и тики в редьюсер.
func (c *CacheController) loop(ctx context.Context) {
	defer close(c.doneCh)
	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		case <-ticker.C:
			if err := c.refreshOnce(ctx); err != nil {
				log.Printf("CacheController: периодическое обновление не удалось: %v", err)
			}
		}
	}
}

// Close останавливает фоновые потоки. После возврата ни один колбэк больше
// не вызывается. Повторный вызов безопасен.
func (c *CacheController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	close(c.stopCh)
	if started {
		<-c.doneCh
	}
	if c.feed != nil && started {
		c.feed.Unsubscribe(c.subID)
	}
}

// Ready сообщает, завершилась ли первичная загрузка.
func (c *CacheController) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Appointments возвращает копию текущей коллекции.
func (c *CacheController) Appointments() []models.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Appointment, len(c.appointments))
	copy(out, c.appointments)
	return out
}

// Add применяет оптимистичную вставку: коллекция меняется сразу, до
// подтверждения хранилищем. Вставка существующего ID — no-op.
func (c *CacheController) Add(a models.Appointment) {
	c.applyChange(data.ChangeInsert, a)
}

// Update применяет оптимистичное обновление. Обновление отсутствующего ID
// превращается во вставку — к тому же состоянию все равно свело бы полное
// обновление.
func (c *CacheController) Update(a models.Appointment) {
	c.applyChange(data.ChangeUpdate, a)
}

// Delete применяет оптимистичное удаление. Удаление отсутствующего ID — no-op.
func (c *CacheController) Delete(id string) {
	c.applyChange(data.ChangeDelete, models.Appointment{ID: id})
}

// handleEvent транслирует realtime-событие хранилища в редьюсер.
func (c *CacheController) handleEvent(ev data.ChangeEvent) {
	if ev.Table != "appointments" {
		return
	}
	switch ev.Type {
	case data.ChangeInsert, data.ChangeUpdate:
		if a, ok := ev.New.(models.Appointment); ok {
			c.applyChange(ev.Type, a)
		}
	case data.ChangeDelete:
		if a, ok := ev.Old.(models.Appointment); ok {
			c.applyChange(ev.Type, a)
		}
	}
}

// applyChange — единая точка входа всех мутаций коллекции.
func (c *CacheController) applyChange(op string, a models.Appointment) {
	c.mu.Lock()
	switch op {
	case data.ChangeInsert:
		if c.indexOf(a.ID) < 0 {
			c.appointments = append(c.appointments, a)
		}
		// Вставка уже существующего ID — no-op: либо гонка синхронизации,
		// либо ретрай, у которого обе попытки дошли.
	case data.ChangeUpdate:
		if i := c.indexOf(a.ID); i >= 0 {
			c.appointments[i] = a
		} else {
			c.appointments = append(c.appointments, a)
		}
	case data.ChangeDelete:
		if i := c.indexOf(a.ID); i >= 0 {
			c.appointments = append(c.appointments[:i], c.appointments[i+1:]...)
		}
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// refreshOnce перечитывает полный список из хранилища и замещает локальное
// состояние — это механизм сверки и путь восстановления, когда realtime
// или оптимистичные правки разъехались. При недоступном хранилище
// состояние берется из последнего локального снимка; успешная сверка сама
// пишет снимок.
func (c *CacheController) refreshOnce(ctx context.Context) error {
	list, err := c.source.GetAllAppointments(ctx)
	if err != nil {
		log.Printf("CacheController: хранилище недоступно (%v), пробуем локальный снимок", err)
		if c.snapshots == nil {
			return err
		}
		fallback, ferr := c.snapshots.LatestAppointments()
		if ferr != nil {
			return err // снимка тоже нет — наружу уходит исходная ошибка
		}
		c.setAll(fallback)
		return nil
	}

	c.setAll(list)
	if c.snapshots != nil {
		if err := c.snapshots.SnapshotAppointments(list); err != nil {
			log.Printf("CacheController: не удалось записать страховочный снимок: %v", err)
		}
	}
	return nil
}

// setAll замещает коллекцию, дедуплицируя по ID (выигрывает первое
// вхождение): дубликаты означают гонку синхронизации или задвоившийся
// ретрай.
func (c *CacheController) setAll(list []models.Appointment) {
	seen := make(map[string]bool, len(list))
	deduped := make([]models.Appointment, 0, len(list))
	for _, a := range list {
		if seen[a.ID] {
			log.Printf("CacheController: отброшен дубликат записи %s при сверке", a.ID)
			continue
		}
		seen[a.ID] = true
		deduped = append(deduped, a)
	}

	c.mu.Lock()
	c.appointments = deduped
	c.ready = true
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// indexOf ищет запись по ID. Вызывается под mu.
func (c *CacheController) indexOf(id string) int {
	for i := range c.appointments {
		if c.appointments[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshotLocked копирует коллекцию. Вызывается под mu.
func (c *CacheController) snapshotLocked() []models.Appointment {
	out := make([]models.Appointment, len(c.appointments))
	copy(out, c.appointments)
	return out
}

func (c *CacheController) notify(appts []models.Appointment) {
	if c.onChange != nil {
		c.onChange(appts)
	}
}
