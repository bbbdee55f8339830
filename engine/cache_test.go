package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salon_server_go/data"
	"salon_server_go/models"
)

// fakeSource — управляемый источник полного списка записей.
type fakeSource struct {
	mu   sync.Mutex
	list []models.Appointment
	err  error
}

func (s *fakeSource) GetAllAppointments(ctx context.Context) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Appointment, len(s.list))
	copy(out, s.list)
	return out, nil
}

// fakeSnapshots — снимки в памяти.
type fakeSnapshots struct {
	mu     sync.Mutex
	latest []models.Appointment
	has    bool
	writes int
}

func (s *fakeSnapshots) SnapshotAppointments(appts []models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = append([]models.Appointment(nil), appts...)
	s.has = true
	s.writes++
	return nil
}

func (s *fakeSnapshots) LatestAppointments() ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return nil, errors.New("снимков еще нет")
	}
	return append([]models.Appointment(nil), s.latest...), nil
}

func cacheAppt(id string) models.Appointment {
	return models.Appointment{
		ID:          id,
		EmployeeID:  1,
		Date:        "2024-03-01",
		Time:        "10:00",
		Client:      "Клиент " + id,
		Duration:    30,
		ServiceType: "haircut",
	}
}

func TestCacheOptimisticOperations(t *testing.T) {
	c := NewCacheController(CacheOptions{Source: &fakeSource{}})

	c.Add(cacheAppt("a1"))
	c.Add(cacheAppt("a1")) // повторная вставка того же ID — no-op
	if got := c.Appointments(); len(got) != 1 {
		t.Fatalf("после двойной вставки %d записей, ожидалась 1", len(got))
	}

	// Обновление отсутствующего ID превращается во вставку.
	upd := cacheAppt("a2")
	upd.Time = "12:00"
	c.Update(upd)
	if got := c.Appointments(); len(got) != 2 {
		t.Fatalf("после update отсутствующего ID %d записей, ожидалось 2", len(got))
	}

	// Обновление существующего ID замещает запись.
	upd2 := cacheAppt("a1")
	upd2.Time = "15:00"
	c.Update(upd2)
	for _, a := range c.Appointments() {
		if a.ID == "a1" && a.Time != "15:00" {
			t.Errorf("a1 не обновлена: время %s", a.Time)
		}
	}

	// Удаление отсутствующего ID — no-op, существующего — убирает запись.
	c.Delete("no-such")
	c.Delete("a2")
	got := c.Appointments()
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("после удалений осталось %v, ожидалась только a1", got)
	}
}

// При сверке дубликаты по ID схлопываются, выигрывает первое вхождение.
func TestCacheRefreshDeduplicates(t *testing.T) {
	first := cacheAppt("dup")
	second := cacheAppt("dup")
	second.Time = "18:00"
	src := &fakeSource{list: []models.Appointment{first, second, cacheAppt("other")}}
	c := NewCacheController(CacheOptions{Source: src})
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := c.Appointments()
	if len(got) != 2 {
		t.Fatalf("после сверки %d записей, ожидалось 2", len(got))
	}
	for _, a := range got {
		if a.ID == "dup" && a.Time != first.Time {
			t.Errorf("выиграло не первое вхождение: время %s", a.Time)
		}
	}
	if !c.Ready() {
		t.Error("Ready() = false после успешной загрузки")
	}
}

// Недоступное хранилище при старте откатывается на локальный снимок;
// успешная загрузка сама пишет снимок.
func TestCacheStartFallsBackToSnapshot(t *testing.T) {
	snaps := &fakeSnapshots{}
	src := &fakeSource{list: []models.Appointment{cacheAppt("a1"), cacheAppt("a2")}}

	c1 := NewCacheController(CacheOptions{Source: src, Snapshots: snaps})
	if err := c1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c1.Close()
	if snaps.writes == 0 {
		t.Fatal("успешная загрузка не записала снимок")
	}

	src.mu.Lock()
	src.err = errors.New("хранилище недоступно")
	src.mu.Unlock()

	c2 := NewCacheController(CacheOptions{Source: src, Snapshots: snaps})
	if err := c2.Start(context.Background()); err != nil {
		t.Fatalf("Start при недоступном хранилище должен откатиться на снимок, получено: %v", err)
	}
	defer c2.Close()
	if got := c2.Appointments(); len(got) != 2 {
		t.Errorf("из снимка восстановлено %d записей, ожидалось 2", len(got))
	}
}

// Без снимков ошибка хранилища при старте уходит наружу.
func TestCacheStartErrorWithoutSnapshot(t *testing.T) {
	src := &fakeSource{err: errors.New("хранилище недоступно")}
	c := NewCacheController(CacheOptions{Source: src})
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("ожидалась ошибка старта без снимка")
	}
	c.Close()
}

// Realtime-события из ленты изменений попадают в коллекцию.
func TestCacheAppliesFeedEvents(t *testing.T) {
	feed := data.NewChangeFeed()
	defer feed.CloseAll()
	src := &fakeSource{}
	c := NewCacheController(CacheOptions{Source: src, Feed: feed, RefreshInterval: time.Hour})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	feed.Publish(data.ChangeEvent{Table: "appointments", Type: data.ChangeInsert, New: cacheAppt("rt1")})
	feed.Publish(data.ChangeEvent{Table: "clients", Type: data.ChangeInsert, New: cacheAppt("ignored")})

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := c.Appointments()
		if len(got) == 1 && got[0].ID == "rt1" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("событие не применилось, коллекция: %v", got)
		}
		time.Sleep(5 * time.Millisecond)
	}

	feed.Publish(data.ChangeEvent{Table: "appointments", Type: data.ChangeDelete, Old: cacheAppt("rt1")})
	for {
		if len(c.Appointments()) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("удаление из ленты не применилось")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCacheCloseIdempotent(t *testing.T) {
	c := NewCacheController(CacheOptions{Source: &fakeSource{}})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Close()
	c.Close() // повторный Close безопасен

	// Close без Start тоже не должен зависать.
	c2 := NewCacheController(CacheOptions{Source: &fakeSource{}})
	done := make(chan struct{})
	go func() {
		c2.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close без Start завис")
	}
}
