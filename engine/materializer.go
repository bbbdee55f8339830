package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"salon_server_go/models"
)

// MaterializationSource — часть хранилища, нужная материализатору.
// Реализуется data.Store.
type MaterializationSource interface {
	GetActiveRecurringTreatments() ([]models.RecurringTreatment, error)
	GetClientByID(id int64) (*models.Client, error)
	GetAllAppointments(ctx context.Context) ([]models.Appointment, error)
}

// Materializer держит будущие вхождения активных процедур
// материализованными: периодически разворачивает каждую активную процедуру
// на скользящее окно вперед и досохраняет недостающие записи. ID вхождений
// детерминированы, а вставка по ID идемпотентна, поэтому повторные проходы
// не плодят дубликатов.
type Materializer struct {
	source  MaterializationSource
	orch    *Orchestrator
	horizon time.Duration
	now     func() time.Time

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMaterializer создает материализатор со скользящим горизонтом вперед.
func NewMaterializer(source MaterializationSource, orch *Orchestrator, horizon time.Duration) *Materializer {
	if horizon <= 0 {
		horizon = 60 * 24 * time.Hour
	}
	return &Materializer{source: source, orch: orch, horizon: horizon, now: time.Now}
}

// RunOnce разворачивает все активные процедуры на окно
// [сегодня, сегодня+горизонт] и сохраняет серии. Ошибка одной процедуры не
// останавливает остальные.
func (m *Materializer) RunOnce(ctx context.Context) error {
	treatments, err := m.source.GetActiveRecurringTreatments()
	if err != nil {
		return fmt.Errorf("Materializer: не удалось получить активные процедуры: %w", err)
	}
	if len(treatments) == 0 {
		return nil
	}

	existing, err := m.source.GetAllAppointments(ctx)
	if err != nil {
		return fmt.Errorf("Materializer: не удалось получить текущие записи: %w", err)
	}

	today := m.now().UTC()
	window := DateWindow{
		Start: startOfDay(today),
		End:   startOfDay(today.Add(m.horizon)),
	}

	for i := range treatments {
		t := treatments[i]
		client, err := m.source.GetClientByID(t.ClientID)
		if err != nil {
			log.Printf("Materializer: клиент %d процедуры %d недоступен: %v", t.ClientID, t.ID, err)
			// Разворачиваем без денормализации контактов.
		}
		series, err := ExpandTreatment(t, client, window)
		if err != nil {
			log.Printf("Materializer: процедура %d не развернулась: %v", t.ID, err)
			continue
		}
		if len(series) == 0 {
			continue
		}
		result := m.orch.SaveSeries(ctx, series, existing)
		existing = append(existing, series...)
		log.Printf("Materializer: процедура %d — сохранено %d/%d вхождений в окне %s..%s",
			t.ID, result.SavedRecurringCount, result.TotalRecurring,
			window.Start.Format(dateLayout), window.End.Format(dateLayout))
	}
	return nil
}

// Start запускает первый проход сразу и далее по тикеру. Повторный Start —
// no-op.
func (m *Materializer) Start(interval time.Duration) {
	m.mu.Lock()
	if m.stopCh != nil {
		m.mu.Unlock()
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	go m.loop(interval, stopCh, doneCh)
	log.Printf("Materializer: материализация включена, интервал %v, горизонт %v", interval, m.horizon)
}

// Close останавливает тикер и дожидается выхода горутины. Повторный вызов
// безопасен.
func (m *Materializer) Close() {
	m.mu.Lock()
	stopCh, doneCh := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
		log.Println("Materializer: материализация остановлена")
	}
}

func (m *Materializer) loop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	if err := m.RunOnce(context.Background()); err != nil {
		log.Printf("Materializer: первый проход не удался: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := m.RunOnce(context.Background()); err != nil {
				log.Printf("Materializer: проход не удался: %v", err)
			}
		}
	}
}

// startOfDay обрезает момент времени до полуночи UTC.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
