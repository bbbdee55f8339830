package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"salon_server_go/models"
)

// RecurringTitleSuffix помечает записи, созданные из повторяющейся процедуры.
// По суффиксу интерфейс отличает их от обычных и предлагает действие
// "редактировать серию".
const RecurringTitleSuffix = " (series)"

const dateLayout = "2006-01-02"

// Пространство имен для детерминированных ID повторяющихся записей.
var recurrenceNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// OccurrenceID возвращает детерминированный ID записи, выведенный из
// процедуры и момента времени. Повторная материализация того же окна дает
// те же ID, поэтому уже сохраненные строки не дублируются (вставка по ID
// идемпотентна). Вручную удаленная запись при следующей материализации
// появится снова — это известное наблюдаемое поведение, сознательно
// сохраненное.
func OccurrenceID(treatmentID int64, date, timeOfDay string) string {
	return uuid.NewSHA1(recurrenceNamespace, []byte(fmt.Sprintf("%d:%s:%s", treatmentID, date, timeOfDay))).String()
}

// DateWindow — инклюзивное окно дат для материализации.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow разбирает границы окна из строк "yyyy-MM-dd".
func NewDateWindow(start, end string) (DateWindow, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateWindow{}, fmt.Errorf("NewDateWindow: неверная дата начала '%s': %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateWindow{}, fmt.Errorf("NewDateWindow: неверная дата конца '%s': %w", end, err)
	}
	return DateWindow{Start: s, End: e}, nil
}

// ExpandTreatment разворачивает процедуру в конкретные записи внутри окна.
// Результат отсортирован по возрастанию даты. Неактивная процедура и
// процедура, начинающаяся после конца окна, дают пустой результат.
// Контактные данные денормализуются из записи клиента (client может быть
// nil, если запись клиента недоступна).
func ExpandTreatment(t models.RecurringTreatment, client *models.Client, window DateWindow) ([]models.Appointment, error) {
	if !t.IsActive {
		return nil, nil
	}

	start, err := time.Parse(dateLayout, t.StartDate)
	if err != nil {
		return nil, fmt.Errorf("ExpandTreatment: неверная start_date '%s' у процедуры %d: %w", t.StartDate, t.ID, err)
	}

	// Эффективное начало — максимум из начала процедуры и начала окна.
	effStart := start
	if window.Start.After(effStart) {
		effStart = window.Start
	}

	// Эффективный конец — минимум из конца процедуры (если задан) и конца окна.
	effEnd := window.End
	if t.EndDate != nil && *t.EndDate != "" {
		end, err := time.Parse(dateLayout, *t.EndDate)
		if err != nil {
			return nil, fmt.Errorf("ExpandTreatment: неверная end_date '%s' у процедуры %d: %w", *t.EndDate, t.ID, err)
		}
		if end.Before(effEnd) {
			effEnd = end
		}
	}

	if effStart.After(effEnd) {
		return nil, nil
	}

	var dates []string
	switch t.FrequencyType {
	case models.FrequencyWeekly:
		dates, err = expandWeekly(t, effStart, effEnd)
	case models.FrequencyMonthly:
		dates, err = expandMonthly(t, start, effStart, effEnd)
	default:
		err = fmt.Errorf("ExpandTreatment: неизвестный тип периодичности '%s' у процедуры %d", t.FrequencyType, t.ID)
	}
	if err != nil {
		return nil, err
	}

	appointments := make([]models.Appointment, 0, len(dates))
	for _, d := range dates {
		appointments = append(appointments, buildOccurrence(t, client, d))
	}
	log.Printf("ExpandTreatment: процедура %d дала %d записей в окне %s..%s",
		t.ID, len(appointments), window.Start.Format(dateLayout), window.End.Format(dateLayout))
	return appointments, nil
}

// expandWeekly идет от эффективного начала шагами 7*frequency_value дней,
// привязываясь к предпочитаемому дню недели. Первая дата — ближайшая
// >= effStart с нужным днем недели.
func expandWeekly(t models.RecurringTreatment, effStart, effEnd time.Time) ([]string, error) {
	if t.PreferredDayOfWeek == nil {
		return nil, fmt.Errorf("expandWeekly: у weekly-процедуры %d нет preferred_day_of_week", t.ID)
	}
	wanted := time.Weekday(*t.PreferredDayOfWeek)
	step := 7 * t.FrequencyValue
	if step <= 0 {
		step = 7
	}

	cur := effStart
	for cur.Weekday() != wanted {
		cur = cur.AddDate(0, 0, 1)
	}

	var dates []string
	for !cur.After(effEnd) {
		dates = append(dates, cur.Format(dateLayout))
		cur = cur.AddDate(0, 0, step)
	}
	return dates, nil
}

// expandMonthly идет по календарным месяцам с шагом frequency_value,
// каждое вхождение — на preferred_day_of_month своего месяца. Если в
// месяце нет такого дня (31-е в феврале), вхождение пропускается, а не
// сдвигается на последний день.
func expandMonthly(t models.RecurringTreatment, ruleStart, effStart, effEnd time.Time) ([]string, error) {
	if t.PreferredDayOfMonth == nil {
		return nil, fmt.Errorf("expandMonthly: у monthly-процедуры %d нет preferred_day_of_month", t.ID)
	}
	day := *t.PreferredDayOfMonth
	step := t.FrequencyValue
	if step <= 0 {
		step = 1
	}

	// Шагаем по месяцам от месяца начала правила, чтобы якорь шага не
	// зависел от положения окна.
	year, month := ruleStart.Year(), ruleStart.Month()
	var dates []string
	for {
		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if candidate.After(effEnd) {
			break
		}
		// time.Date нормализует 31 февраля в 2-3 марта; такой месяц пропускаем.
		if candidate.Day() == day && !candidate.Before(effStart) {
			dates = append(dates, candidate.Format(dateLayout))
		}
		month += time.Month(step)
		for month > 12 {
			month -= 12
			year++
		}
	}
	return dates, nil
}

// buildOccurrence собирает Appointment из процедуры и даты вхождения.
func buildOccurrence(t models.RecurringTreatment, client *models.Client, date string) models.Appointment {
	title := t.ServiceType + RecurringTitleSuffix
	a := models.Appointment{
		ID:          OccurrenceID(t.ID, date, t.PreferredTime),
		EmployeeID:  t.EmployeeID,
		Date:        date,
		Time:        t.PreferredTime,
		Title:       &title,
		Duration:    t.Duration,
		ServiceType: t.ServiceType,
		ClientID:    &t.ClientID,
		Notes:       t.Notes,
	}
	if client != nil {
		a.Client = client.Name
		a.Email = client.Email
		a.Phone = client.Phone
	}
	return a
}
