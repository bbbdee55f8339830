package controllers

import (
	"database/sql"
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

// StoreController отдает табличный CRUD хранилища салона. Клиентское
// приложение работает с ним как с hosted-БД: те же таблицы, те же
// realtime-события.
type StoreController struct {
	Store *data.Store
	// Cache — прогретая коллекция записей (лента изменений + периодическая
	// сверка + страховочный снимок). Список записей отдается из нее; при
	// nil или непрогретом кэше — прямым чтением хранилища.
	Cache *engine.CacheController
}

// --- appointments ---

// ListAppointments обрабатывает GET /api/appointments. Пока кэш прогрет,
// список живет в памяти и переживает кратковременную недоступность
// хранилища.
func (c *StoreController) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if c.Cache != nil && c.Cache.Ready() {
		respondJSON(w, http.StatusOK, c.Cache.Appointments())
		return
	}
	list, err := c.Store.GetAllAppointments(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить список записей: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateAppointment обрабатывает POST /api/appointments. Если ID не задан,
// сервер генерирует его; если клиент не привязан, выполняется
// find-or-create по имени и контактам, чтобы не плодить дубликаты.
func (c *StoreController) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var a models.Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if err := c.resolveClient(&a); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось привязать клиента: "+err.Error())
		return
	}

	if err := c.Store.CreateAppointment(r.Context(), &a); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось сохранить запись: "+err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// GetAppointment обрабатывает GET /api/appointments/{id}.
func (c *StoreController) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := c.Store.GetAppointmentByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка сервера при получении записи.")
		return
	}
	if a == nil {
		respondError(w, http.StatusNotFound, "Запись не найдена.")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// UpdateAppointment обрабатывает PUT /api/appointments/{id}.
func (c *StoreController) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var a models.Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()
	a.ID = id

	if err := c.resolveClient(&a); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось привязать клиента: "+err.Error())
		return
	}

	if err := c.Store.UpdateAppointment(r.Context(), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Запись не найдена.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось обновить запись: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteAppointment обрабатывает DELETE /api/appointments/{id}.
func (c *StoreController) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := c.Store.DeleteAppointment(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Запись не найдена.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось удалить запись: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// resolveClient выполняет find-or-create клиента, если запись пришла без
// client_id, и денормализует контакты обратно в запись.
func (c *StoreController) resolveClient(a *models.Appointment) error {
	if a.ClientID != nil || a.Client == "" {
		return nil
	}
	email, phone := "", ""
	if a.Email != nil {
		email = *a.Email
	}
	if a.Phone != nil {
		phone = *a.Phone
	}
	client, err := c.Store.FindOrCreateClient(a.Client, email, phone)
	if err != nil {
		return err
	}
	a.ClientID = &client.ID
	if a.Email == nil {
		a.Email = client.Email
	}
	if a.Phone == nil {
		a.Phone = client.Phone
	}
	return nil
}

// --- employees ---

// ListEmployees обрабатывает GET /api/employees.
func (c *StoreController) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := c.Store.GetAllEmployees()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить список мастеров: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateEmployee обрабатывает POST /api/employees.
func (c *StoreController) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var e models.Employee
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if e.Name == "" {
		respondError(w, http.StatusBadRequest, "Имя мастера не может быть пустым.")
		return
	}
	if _, err := c.Store.CreateEmployee(&e); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось создать мастера: "+err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// UpdateEmployee обрабатывает PUT /api/employees/{id}.
func (c *StoreController) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID мастера.")
		return
	}
	var e models.Employee
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()
	e.ID = id

	if err := c.Store.UpdateEmployee(&e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Мастер не найден.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось обновить мастера: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// DeleteEmployee обрабатывает DELETE /api/employees/{id}. Записи мастера
// удаляются каскадом.
func (c *StoreController) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID мастера.")
		return
	}
	if err := c.Store.DeleteEmployee(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Мастер не найден.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось удалить мастера: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- clients ---

// ListClients обрабатывает GET /api/clients.
func (c *StoreController) ListClients(w http.ResponseWriter, r *http.Request) {
	list, err := c.Store.GetAllClients()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить список клиентов: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateClient обрабатывает POST /api/clients через find-or-create: если
// клиент с таким именем или контактами уже есть, возвращается он.
func (c *StoreController) CreateClient(w http.ResponseWriter, r *http.Request) {
	var cl models.Client
	if err := json.NewDecoder(r.Body).Decode(&cl); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	email, phone := "", ""
	if cl.Email != nil {
		email = *cl.Email
	}
	if cl.Phone != nil {
		phone = *cl.Phone
	}
	created, err := c.Store.FindOrCreateClient(cl.Name, email, phone)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось создать клиента: "+err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// UpdateClient обрабатывает PUT /api/clients/{id}.
func (c *StoreController) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID клиента.")
		return
	}
	var cl models.Client
	if err := json.NewDecoder(r.Body).Decode(&cl); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()
	cl.ID = id

	if err := c.Store.UpdateClient(&cl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Клиент не найден.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось обновить клиента: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cl)
}

// DeleteClient обрабатывает DELETE /api/clients/{id}.
func (c *StoreController) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID клиента.")
		return
	}
	if err := c.Store.DeleteClient(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Клиент не найден.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось удалить клиента: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- recurring treatments ---

// ListRecurringTreatments обрабатывает GET /api/recurring-treatments.
func (c *StoreController) ListRecurringTreatments(w http.ResponseWriter, r *http.Request) {
	list, err := c.Store.GetAllRecurringTreatments()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить список процедур: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateRecurringTreatment обрабатывает POST /api/recurring-treatments.
func (c *StoreController) CreateRecurringTreatment(w http.ResponseWriter, r *http.Request) {
	var t models.RecurringTreatment
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if _, err := c.Store.CreateRecurringTreatment(&t); err != nil {
		respondError(w, http.StatusBadRequest, "Не удалось создать процедуру: "+err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// UpdateRecurringTreatment обрабатывает PUT /api/recurring-treatments/{id}.
func (c *StoreController) UpdateRecurringTreatment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID процедуры.")
		return
	}
	var t models.RecurringTreatment
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()
	t.ID = id

	if err := c.Store.UpdateRecurringTreatment(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Процедура не найдена.")
			return
		}
		respondError(w, http.StatusBadRequest, "Не удалось обновить процедуру: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeleteRecurringTreatment обрабатывает DELETE /api/recurring-treatments/{id}.
func (c *StoreController) DeleteRecurringTreatment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат ID процедуры.")
		return
	}
	if err := c.Store.DeleteRecurringTreatment(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Процедура не найдена.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Не удалось удалить процедуру: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- custom services ---

// GetCustomServices обрабатывает GET /api/custom-services/{userId}.
func (c *StoreController) GetCustomServices(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	cs, err := c.Store.GetCustomServices(userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось получить каталог услуг: "+err.Error())
		return
	}
	if cs == nil {
		respondError(w, http.StatusNotFound, "Каталог услуг не найден.")
		return
	}
	respondJSON(w, http.StatusOK, cs)
}

// SaveCustomServices обрабатывает PUT /api/custom-services/{userId}.
func (c *StoreController) SaveCustomServices(w http.ResponseWriter, r *http.Request) {
	var cs models.CustomServices
	if err := json.NewDecoder(r.Body).Decode(&cs); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()
	cs.UserID = mux.Vars(r)["userId"]

	if err := c.Store.SaveCustomServices(&cs); err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось сохранить каталог услуг: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cs)
}
