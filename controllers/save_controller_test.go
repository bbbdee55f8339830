package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"salon_server_go/models"
)

func postBatch(t *testing.T, c *SaveController, req BatchSaveRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/appointments/batch", bytes.NewReader(body))
	w := httptest.NewRecorder()
	c.BatchSave(w, r)
	return w
}

func TestBatchSaveOK(t *testing.T) {
	store := openTestStore(t)
	empID := mustCreateEmployee(t, store, "Ольга")
	ctrl := &SaveController{Store: store, ProfileOverride: "desktop"}

	w := postBatch(t, ctrl, BatchSaveRequest{
		Main: models.Appointment{
			EmployeeID:  empID,
			Date:        "2024-03-01",
			Time:        "10:00",
			Client:      "Анна Иванова",
			Duration:    60,
			ServiceType: "haircut",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("BatchSave: код %d, ожидался %d; тело: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp BatchSaveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !resp.MainSaved {
		t.Error("BatchSave: основная запись не отмечена сохраненной")
	}

	list, err := store.GetAllAppointments(context.Background())
	if err != nil {
		t.Fatalf("GetAllAppointments: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("в хранилище %d записей, ожидалась 1", len(list))
	}
}

// Невалидная основная запись отклоняется до записи и возвращает ошибку
// запроса, а не ошибку сервера.
func TestBatchSaveInvalidMainIsBadRequest(t *testing.T) {
	store := openTestStore(t)
	empID := mustCreateEmployee(t, store, "Ольга")
	ctrl := &SaveController{Store: store, ProfileOverride: "desktop"}

	w := postBatch(t, ctrl, BatchSaveRequest{
		Main: models.Appointment{
			EmployeeID:  empID,
			Date:        "2024-03-01",
			Time:        "10:00",
			Client:      "", // имя клиента обязательно
			Duration:    60,
			ServiceType: "haircut",
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("BatchSave с пустым клиентом: код %d, ожидался %d; тело: %s",
			w.Code, http.StatusBadRequest, w.Body.String())
	}

	list, err := store.GetAllAppointments(context.Background())
	if err != nil {
		t.Fatalf("GetAllAppointments: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("невалидная запись попала в хранилище: %d записей", len(list))
	}
}
