package engine

import (
	"context"
	"testing"

	"salon_server_go/models"
)

func testOrchestrator(w *fakeWriter) *Orchestrator {
	p := testProfile()
	p.MaxAttempts = 1 // в тестах батча важен порядок, а не ретраи
	return NewOrchestrator(NewWriteExecutor(w, p))
}

func recurringBatch(n int) []models.Appointment {
	appts := make([]models.Appointment, 0, n)
	for i := 0; i < n; i++ {
		a := validAppointment("")
		a.ID = OccurrenceID(1, "2024-03-0"+string(rune('1'+i)), "10:00")
		a.Date = "2024-03-0" + string(rune('1'+i))
		appts = append(appts, *a)
	}
	return appts
}

func TestBatchAllSaved(t *testing.T) {
	w := newFakeWriter()
	o := testOrchestrator(w)

	main := validAppointment("main")
	additional := []models.Appointment{*validAppointment("add1")}
	recurring := recurringBatch(3)

	result, err := o.SaveAppointments(context.Background(), main, additional, recurring, nil)
	if err != nil {
		t.Fatalf("SaveAppointments: %v", err)
	}
	if !result.MainSaved || result.SavedAdditionalCount != 1 || result.SavedRecurringCount != 3 {
		t.Errorf("итог %+v, ожидалось main + 1 additional + 3 recurring", result)
	}
	if len(result.FailedSaves) != 0 {
		t.Errorf("неожиданные провалы: %v", result.FailedSaves)
	}
	if got := result.Summary(); got != "Запись сохранена вместе с 3 повторяющимися." {
		t.Errorf("Summary() = %q", got)
	}
}

// Провал части повторяющихся записей не роняет соседей: из 5 с двумя
// отказами сохраняются 3, оба отказа попадают в отчет.
func TestBatchPartialRecurringFailure(t *testing.T) {
	w := newFakeWriter()
	recurring := recurringBatch(5)
	w.failAlways[recurring[1].ID] = true
	w.failAlways[recurring[3].ID] = true
	o := testOrchestrator(w)

	result, err := o.SaveAppointments(context.Background(), validAppointment("main"), nil, recurring, nil)
	if err != nil {
		t.Fatalf("SaveAppointments: %v", err)
	}
	if !result.MainSaved {
		t.Error("основная запись не сохранилась")
	}
	if result.SavedRecurringCount != 3 {
		t.Errorf("SavedRecurringCount = %d, ожидалось 3", result.SavedRecurringCount)
	}
	if result.TotalRecurring != 5 {
		t.Errorf("TotalRecurring = %d, ожидалось 5", result.TotalRecurring)
	}
	if len(result.FailedSaves) != 2 {
		t.Fatalf("в отчете %d провалов, ожидалось 2: %v", len(result.FailedSaves), result.FailedSaves)
	}
	for _, f := range result.FailedSaves {
		if f.Category != CategoryRecurring {
			t.Errorf("категория провала %q, ожидалось %q", f.Category, CategoryRecurring)
		}
		if f.Error == "" {
			t.Error("провал без текста ошибки")
		}
	}
	if got := result.Summary(); got != "Запись сохранена; повторяющихся сохранено 3 из 5." {
		t.Errorf("Summary() = %q", got)
	}
}

// Провал основной записи прерывает батч: ничего больше не пишется.
func TestBatchMainFailureAborts(t *testing.T) {
	w := newFakeWriter()
	w.failAlways["main"] = true
	o := testOrchestrator(w)

	recurring := recurringBatch(3)
	result, err := o.SaveAppointments(context.Background(), validAppointment("main"), nil, recurring, nil)
	if err == nil {
		t.Fatal("ожидалась ошибка при провале основной записи")
	}
	if result.MainSaved {
		t.Error("MainSaved = true при проваленной основной записи")
	}
	if len(w.saved) != 0 {
		t.Errorf("после провала main сохранено %v, ожидалось ничего", w.saved)
	}
	if len(result.FailedSaves) != 1 || result.FailedSaves[0].Category != CategoryMain {
		t.Errorf("отчет о провалах %v, ожидался один провал main", result.FailedSaves)
	}
	if got := result.Summary(); got != "Не удалось сохранить запись." {
		t.Errorf("Summary() = %q", got)
	}
}

// Записи уходят в хранилище строго по порядку: main, additional, recurring.
func TestBatchWriteOrder(t *testing.T) {
	w := newFakeWriter()
	o := testOrchestrator(w)

	main := validAppointment("main")
	additional := []models.Appointment{*validAppointment("add1"), *validAppointment("add2")}
	recurring := recurringBatch(2)

	if _, err := o.SaveAppointments(context.Background(), main, additional, recurring, nil); err != nil {
		t.Fatalf("SaveAppointments: %v", err)
	}

	want := []string{"main", "add1", "add2", recurring[0].ID, recurring[1].ID}
	if len(w.saved) != len(want) {
		t.Fatalf("сохранено %v, ожидалось %v", w.saved, want)
	}
	for i := range want {
		if w.saved[i] != want[i] {
			t.Errorf("порядок[%d] = %s, ожидалось %s", i, w.saved[i], want[i])
		}
	}
}

func TestSaveSeries(t *testing.T) {
	w := newFakeWriter()
	series := recurringBatch(4)
	w.failAlways[series[2].ID] = true
	o := testOrchestrator(w)

	result := o.SaveSeries(context.Background(), series, nil)
	if result.SavedRecurringCount != 3 {
		t.Errorf("SavedRecurringCount = %d, ожидалось 3", result.SavedRecurringCount)
	}
	if result.TotalRecurring != 4 {
		t.Errorf("TotalRecurring = %d, ожидалось 4", result.TotalRecurring)
	}
	if len(result.FailedSaves) != 1 {
		t.Errorf("провалов %d, ожидался 1", len(result.FailedSaves))
	}
}
