package data

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"salon_server_go/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("sqlite3", filepath.Join(t.TempDir(), "salon_test.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAppt(id string, employeeID int64) *models.Appointment {
	return &models.Appointment{
		ID:          id,
		EmployeeID:  employeeID,
		Date:        "2024-03-01",
		Time:        "10:00",
		Client:      "Анна Иванова",
		Duration:    60,
		ServiceType: "haircut",
	}
}

func mustCreateEmployee(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.CreateEmployee(&models.Employee{
		Name:           name,
		Color:          "#ff0000",
		Specialization: models.SpecializationHairdresser,
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return id
}

// Вставки с автогенерируемым ключом возвращают реальный ID строки
// (INSERT ... RETURNING, одинаково работающий на sqlite3 и postgres).
func TestCreateReturnsGeneratedID(t *testing.T) {
	s := openTestStore(t)

	first, err := s.CreateClient(&models.Client{Name: "Анна"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	second, err := s.CreateClient(&models.Client{Name: "Мария"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if first == 0 || second == 0 || first == second {
		t.Errorf("ID клиентов %d и %d, ожидались разные ненулевые", first, second)
	}
	got, err := s.GetClientByID(second)
	if err != nil || got == nil {
		t.Fatalf("GetClientByID(%d): %v, %v", second, got, err)
	}
	if got.Name != "Мария" {
		t.Errorf("по возвращенному ID найден %q, ожидалась Мария", got.Name)
	}

	empID := mustCreateEmployee(t, s, "Ольга")
	emp, err := s.GetEmployeeByID(empID)
	if err != nil || emp == nil || emp.Name != "Ольга" {
		t.Errorf("по возвращенному ID мастера %d найдено %v (%v)", empID, emp, err)
	}

	day := 2
	trID, err := s.CreateRecurringTreatment(&models.RecurringTreatment{
		ClientID:           first,
		EmployeeID:         empID,
		ServiceType:        "massage",
		Duration:           60,
		FrequencyType:      models.FrequencyWeekly,
		FrequencyValue:     1,
		PreferredDayOfWeek: &day,
		PreferredTime:      "14:00",
		IsActive:           true,
		StartDate:          "2024-01-01",
	})
	if err != nil {
		t.Fatalf("CreateRecurringTreatment: %v", err)
	}
	tr, err := s.GetRecurringTreatmentByID(trID)
	if err != nil || tr == nil || tr.ServiceType != "massage" {
		t.Errorf("по возвращенному ID процедуры %d найдено %v (%v)", trID, tr, err)
	}
}

// Повторная вставка записи с тем же ID не создает дубликата и не
// считается ошибкой.
func TestCreateAppointmentIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	empID := mustCreateEmployee(t, s, "Ольга")

	a := testAppt("appt-1", empID)
	if err := s.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if err := s.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("повторный CreateAppointment: %v", err)
	}

	n, err := s.CountAppointments()
	if err != nil {
		t.Fatalf("CountAppointments: %v", err)
	}
	if n != 1 {
		t.Errorf("в таблице %d записей, ожидалась 1", n)
	}
}

func TestUpsertAppointmentInsertThenUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	empID := mustCreateEmployee(t, s, "Ольга")

	subID, events := s.Feed().Subscribe()
	defer s.Feed().Unsubscribe(subID)

	a := testAppt("appt-1", empID)
	if err := s.UpsertAppointment(ctx, a); err != nil {
		t.Fatalf("UpsertAppointment: %v", err)
	}
	ev := <-events
	if ev.Type != ChangeInsert || ev.Table != "appointments" {
		t.Errorf("первое событие %s/%s, ожидалось appointments/INSERT", ev.Table, ev.Type)
	}

	a.Time = "15:00"
	if err := s.UpsertAppointment(ctx, a); err != nil {
		t.Fatalf("повторный UpsertAppointment: %v", err)
	}
	ev = <-events
	if ev.Type != ChangeUpdate {
		t.Errorf("второе событие %s, ожидалось UPDATE", ev.Type)
	}

	got, err := s.GetAppointmentByID("appt-1")
	if err != nil {
		t.Fatalf("GetAppointmentByID: %v", err)
	}
	if got == nil || got.Time != "15:00" {
		t.Errorf("после upsert запись %+v, ожидалось время 15:00", got)
	}

	n, _ := s.CountAppointments()
	if n != 1 {
		t.Errorf("в таблице %d записей, ожидалась 1", n)
	}
}

func TestGetAppointmentByIDMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetAppointmentByID("no-such")
	if err != nil {
		t.Fatalf("GetAppointmentByID: %v", err)
	}
	if got != nil {
		t.Errorf("для отсутствующего ID получено %+v, ожидалось nil", got)
	}
}

// Удаление мастера забирает с собой все его записи и публикует события
// по каждой.
func TestDeleteEmployeeCascade(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	empID := mustCreateEmployee(t, s, "Ольга")
	otherID := mustCreateEmployee(t, s, "Ирина")

	if err := s.CreateAppointment(ctx, testAppt("appt-1", empID)); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	a2 := testAppt("appt-2", empID)
	a2.Time = "12:00"
	if err := s.CreateAppointment(ctx, a2); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if err := s.CreateAppointment(ctx, testAppt("appt-other", otherID)); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	subID, events := s.Feed().Subscribe()
	defer s.Feed().Unsubscribe(subID)

	if err := s.DeleteEmployee(ctx, empID); err != nil {
		t.Fatalf("DeleteEmployee: %v", err)
	}

	n, _ := s.CountAppointments()
	if n != 1 {
		t.Errorf("после каскада осталось %d записей, ожидалась 1", n)
	}
	left, err := s.GetAppointmentByID("appt-other")
	if err != nil || left == nil {
		t.Errorf("запись другого мастера пропала: %v, %v", left, err)
	}

	deletes := 0
	for i := 0; i < 3; i++ {
		ev := <-events
		if ev.Type == ChangeDelete && ev.Table == "appointments" {
			deletes++
		}
	}
	if deletes != 2 {
		t.Errorf("событий удаления записей %d, ожидалось 2", deletes)
	}

	if err := s.DeleteEmployee(ctx, empID); err != sql.ErrNoRows {
		t.Errorf("повторное удаление мастера: %v, ожидалось sql.ErrNoRows", err)
	}
}

func TestEmployeeVacationsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateEmployee(&models.Employee{
		Name:           "Ольга",
		Color:          "#00ff00",
		Specialization: models.SpecializationBeautician,
		Vacations:      []string{"2024-07-01", "2024-07-02"},
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}

	got, err := s.GetEmployeeByID(id)
	if err != nil {
		t.Fatalf("GetEmployeeByID: %v", err)
	}
	if len(got.Vacations) != 2 {
		t.Fatalf("отпусков %d, ожидалось 2", len(got.Vacations))
	}
	if !got.OnVacation("2024-07-01") || got.OnVacation("2024-07-03") {
		t.Error("OnVacation отвечает неверно")
	}
}

// Поиск клиента по имени не зависит от регистра, форма записи не плодит
// дубликатов.
func TestFindOrCreateClientDeduplicates(t *testing.T) {
	s := openTestStore(t)

	first, err := s.FindOrCreateClient("Maria Rossi", "maria@example.com", "")
	if err != nil {
		t.Fatalf("FindOrCreateClient: %v", err)
	}

	second, err := s.FindOrCreateClient("maria rossi", "", "")
	if err != nil {
		t.Fatalf("повторный FindOrCreateClient: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("для того же имени создан новый клиент %d, ожидался %d", second.ID, first.ID)
	}

	// Другое имя, но совпадающий email — тоже тот же клиент.
	third, err := s.FindOrCreateClient("М. Росси", "maria@example.com", "")
	if err != nil {
		t.Fatalf("FindOrCreateClient по контакту: %v", err)
	}
	if third.ID != first.ID {
		t.Errorf("для того же email создан новый клиент %d, ожидался %d", third.ID, first.ID)
	}

	// Незнакомое имя без контактов — новый клиент.
	fourth, err := s.FindOrCreateClient("Анна Иванова", "", "")
	if err != nil {
		t.Fatalf("FindOrCreateClient: %v", err)
	}
	if fourth.ID == first.ID {
		t.Error("разные клиенты получили один ID")
	}

	if _, err := s.FindOrCreateClient("   ", "", ""); err == nil {
		t.Error("пустое имя прошло без ошибки")
	}
}

func TestRecurringTreatmentValidation(t *testing.T) {
	s := openTestStore(t)
	clientID, err := s.CreateClient(&models.Client{Name: "Анна"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	empID := mustCreateEmployee(t, s, "Ольга")

	day := 2
	base := models.RecurringTreatment{
		ClientID:       clientID,
		EmployeeID:     empID,
		ServiceType:    "massage",
		Duration:       60,
		FrequencyType:  models.FrequencyWeekly,
		FrequencyValue: 1,
		PreferredTime:  "14:00",
		IsActive:       true,
		StartDate:      "2024-01-01",
	}

	// weekly без дня недели не проходит.
	bad := base
	if _, err := s.CreateRecurringTreatment(&bad); err == nil {
		t.Error("weekly-процедура без preferred_day_of_week создана")
	}

	good := base
	good.PreferredDayOfWeek = &day
	id, err := s.CreateRecurringTreatment(&good)
	if err != nil {
		t.Fatalf("CreateRecurringTreatment: %v", err)
	}

	// Деактивированная процедура уходит из активной выборки.
	good.ID = id
	good.IsActive = false
	if err := s.UpdateRecurringTreatment(&good); err != nil {
		t.Fatalf("UpdateRecurringTreatment: %v", err)
	}
	active, err := s.GetActiveRecurringTreatments()
	if err != nil {
		t.Fatalf("GetActiveRecurringTreatments: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("в активной выборке %d процедур, ожидалось 0", len(active))
	}
	all, err := s.GetAllRecurringTreatments()
	if err != nil {
		t.Fatalf("GetAllRecurringTreatments: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("в полной выборке %d процедур, ожидалась 1", len(all))
	}
}

func TestCustomServicesRoundTrip(t *testing.T) {
	s := openTestStore(t)

	cs := &models.CustomServices{
		UserID: "device-1",
		ServiceCategories: map[string][]string{
			"hairdresser": {"haircut", "coloring"},
			"beautician":  {"manicure"},
		},
	}
	if err := s.SaveCustomServices(cs); err != nil {
		t.Fatalf("SaveCustomServices: %v", err)
	}

	// Повторное сохранение того же пользователя перезаписывает каталог.
	cs.ServiceCategories = map[string][]string{"hairdresser": {"haircut"}}
	if err := s.SaveCustomServices(cs); err != nil {
		t.Fatalf("повторный SaveCustomServices: %v", err)
	}

	got, err := s.GetCustomServices("device-1")
	if err != nil {
		t.Fatalf("GetCustomServices: %v", err)
	}
	if got == nil {
		t.Fatal("каталог не найден")
	}
	if len(got.ServiceCategories) != 1 || len(got.ServiceCategories["hairdresser"]) != 1 {
		t.Errorf("каталог после перезаписи: %v", got.ServiceCategories)
	}
}
