package engine

import (
	"context"
	"testing"
	"time"

	"salon_server_go/models"
)

// fakeMatSource — фальшивое хранилище для тестов материализатора.
type fakeMatSource struct {
	treatments []models.RecurringTreatment
	clients    map[int64]*models.Client
	existing   []models.Appointment
}

func (s *fakeMatSource) GetActiveRecurringTreatments() ([]models.RecurringTreatment, error) {
	return s.treatments, nil
}

func (s *fakeMatSource) GetClientByID(id int64) (*models.Client, error) {
	return s.clients[id], nil
}

func (s *fakeMatSource) GetAllAppointments(ctx context.Context) ([]models.Appointment, error) {
	return s.existing, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
}

// Проход материализатора разворачивает активные процедуры на скользящий
// горизонт вперед и сохраняет вхождения с детерминированными ID.
func TestMaterializerRunOnce(t *testing.T) {
	tr := weeklyTreatment() // вторники с 2024-01-01
	src := &fakeMatSource{
		treatments: []models.RecurringTreatment{tr},
		clients:    map[int64]*models.Client{tr.ClientID: {ID: tr.ClientID, Name: "Анна Иванова"}},
	}
	w := newFakeWriter()
	m := NewMaterializer(src, testOrchestrator(w), 30*24*time.Hour)
	m.now = fixedNow

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// Вторники от 2024-01-01 до 2024-01-31: 2, 9, 16, 23, 30.
	if len(w.saved) != 5 {
		t.Fatalf("сохранено %d вхождений %v, ожидалось 5", len(w.saved), w.saved)
	}
	wantFirst := OccurrenceID(tr.ID, "2024-01-02", tr.PreferredTime)
	if w.saved[0] != wantFirst {
		t.Errorf("первое вхождение %s, ожидалось %s", w.saved[0], wantFirst)
	}

	// Повторный проход дает ровно те же ID — вставки в хранилище
	// идемпотентны по ID, дубликатов не появится.
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("повторный RunOnce: %v", err)
	}
	if len(w.saved) != 10 {
		t.Fatalf("после второго прохода %d сохранений, ожидалось 10", len(w.saved))
	}
	for i := 0; i < 5; i++ {
		if w.saved[i] != w.saved[i+5] {
			t.Errorf("ID[%d] разошлись между проходами: %s и %s", i, w.saved[i], w.saved[i+5])
		}
	}
}

func TestMaterializerNoActiveTreatments(t *testing.T) {
	src := &fakeMatSource{}
	w := newFakeWriter()
	m := NewMaterializer(src, testOrchestrator(w), 30*24*time.Hour)
	m.now = fixedNow

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(w.saved) != 0 {
		t.Errorf("без активных процедур сохранено %v", w.saved)
	}
}

// Тикер запускает первый проход сразу; Close идемпотентен и дожидается
// горутины.
func TestMaterializerStartClose(t *testing.T) {
	tr := weeklyTreatment()
	src := &fakeMatSource{
		treatments: []models.RecurringTreatment{tr},
		clients:    map[int64]*models.Client{},
	}
	w := newFakeWriter()
	m := NewMaterializer(src, testOrchestrator(w), 30*24*time.Hour)
	m.now = fixedNow

	m.Start(time.Hour)
	m.Start(time.Hour) // повторный Start — no-op

	deadline := time.Now().Add(2 * time.Second)
	for {
		w.mu.Lock()
		n := len(w.saved)
		w.mu.Unlock()
		if n >= 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("первый проход не выполнился, сохранено %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Close()
	m.Close() // повторный Close безопасен
}
