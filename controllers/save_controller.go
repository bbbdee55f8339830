package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"salon_server_go/data"
	"salon_server_go/engine"
	"salon_server_go/models"
)

// SaveController проводит батч-сохранения и материализацию повторяющихся
// процедур через движок: последовательные записи с ретраями и паузами
// вместо залпа параллельных вставок.
type SaveController struct {
	Store *data.Store
	// Cache — прогретая коллекция записей; снимок для проверки пересечений
	// берется из нее, чтобы не перечитывать таблицу на каждый батч.
	// Может быть nil (откат на прямое чтение хранилища).
	Cache *engine.CacheController
	// ProfileOverride фиксирует профиль из конфигурации ("desktop"/"mobile");
	// пустая строка означает определение по заголовкам запроса.
	ProfileOverride string
}

// BatchSaveRequest — тело POST /api/appointments/batch.
type BatchSaveRequest struct {
	Main       models.Appointment   `json:"main"`
	Additional []models.Appointment `json:"additional"`
	Recurring  []models.Appointment `json:"recurring"`
}

// BatchSaveResponse — итог батча плюс сводное сообщение для интерфейса.
type BatchSaveResponse struct {
	*engine.BatchResult
	Message string `json:"message"`
}

// profileFor выбирает профиль таймингов: из конфигурации или по грубым
// признакам клиента в заголовках.
func (c *SaveController) profileFor(r *http.Request) engine.RuntimeProfile {
	switch c.ProfileOverride {
	case "desktop":
		return engine.DesktopProfile()
	case "mobile":
		return engine.MobileProfile()
	}
	width, _ := strconv.Atoi(r.Header.Get("X-Viewport-Width"))
	downlink, _ := strconv.ParseFloat(r.Header.Get("X-Downlink-Mbps"), 64)
	return engine.DetectProfile(engine.ClientHints{
		UserAgent:     r.Header.Get("User-Agent"),
		ViewportWidth: width,
		DownlinkMbps:  downlink,
	})
}

// existingSnapshot отдает текущие записи для проверки пересечений: из
// кэша, если он прогрет, иначе прямым чтением.
func (c *SaveController) existingSnapshot(r *http.Request) ([]models.Appointment, error) {
	if c.Cache != nil && c.Cache.Ready() {
		return c.Cache.Appointments(), nil
	}
	return c.Store.GetAllAppointments(r.Context())
}

// BatchSave обрабатывает POST /api/appointments/batch: основная запись,
// дополнительные записи того же дня и повторяющиеся, строго
// последовательно. Провал основной записи — ошибка запроса; остальные
// провалы попадают в отчет.
func (c *SaveController) BatchSave(w http.ResponseWriter, r *http.Request) {
	var req BatchSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.Main.ID == "" {
		req.Main.ID = uuid.New().String()
	}
	for i := range req.Additional {
		if req.Additional[i].ID == "" {
			req.Additional[i].ID = uuid.New().String()
		}
	}

	existing, err := c.existingSnapshot(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить текущие записи: "+err.Error())
		return
	}

	orch := engine.NewOrchestrator(engine.NewWriteExecutor(c.Store, c.profileFor(r)))
	result, err := orch.SaveAppointments(r.Context(), &req.Main, req.Additional, req.Recurring, existing)
	if err != nil {
		// Основная запись не сохранилась — жесткая ошибка. Невалидные данные
		// отклоняются до записи и отличаются от временных сбоев кодом ответа.
		status := http.StatusInternalServerError
		var ve *engine.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, BatchSaveResponse{BatchResult: result, Message: result.Summary()})
		return
	}
	respondJSON(w, http.StatusOK, BatchSaveResponse{BatchResult: result, Message: result.Summary()})
}

// MaterializeRequest — тело запроса материализации: окно дат.
type MaterializeRequest struct {
	StartDate string `json:"start_date"` // "yyyy-MM-dd", включительно
	EndDate   string `json:"end_date"`   // "yyyy-MM-dd", включительно
}

// Materialize обрабатывает POST /api/recurring-treatments/{id}/materialize:
// разворачивает процедуру в окне и сохраняет вхождения. Повторная
// материализация того же окна не создает дубликатов — ID вхождений
// детерминированы.
func (c *SaveController) Materialize(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID процедуры.")
		return
	}

	var req MaterializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	window, err := engine.NewDateWindow(req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверное окно дат: "+err.Error())
		return
	}

	t, err := c.Store.GetRecurringTreatmentByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка сервера при получении процедуры.")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, "Процедура не найдена.")
		return
	}
	if !t.IsActive {
		// Неактивные процедуры не материализуются.
		respondJSON(w, http.StatusOK, BatchSaveResponse{BatchResult: &engine.BatchResult{MainSaved: true}, Message: "Процедура неактивна, записи не созданы."})
		return
	}

	client, err := c.Store.GetClientByID(t.ClientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка сервера при получении клиента процедуры.")
		return
	}

	series, err := engine.ExpandTreatment(*t, client, window)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Не удалось развернуть процедуру: "+err.Error())
		return
	}

	existing, err := c.existingSnapshot(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить текущие записи: "+err.Error())
		return
	}

	orch := engine.NewOrchestrator(engine.NewWriteExecutor(c.Store, c.profileFor(r)))
	result := orch.SaveSeries(r.Context(), series, existing)
	respondJSON(w, http.StatusOK, BatchSaveResponse{BatchResult: result, Message: result.Summary()})
}
