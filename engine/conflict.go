package engine

import (
	"fmt"
	"strconv"
	"strings"

	"salon_server_go/models"
)

// parseMinutes переводит строку "HH:mm" в минуты от полуночи.
func parseMinutes(t string) (int, error) {
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("parseMinutes: неверный формат времени '%s'", t)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parseMinutes: неверный час в '%s'", t)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parseMinutes: неверные минуты в '%s'", t)
	}
	return h*60 + m, nil
}

// overlaps проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и
// [bStart, bEnd). Запись, заканчивающаяся ровно в момент начала другой,
// пересечением не считается.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// HasConflict сообщает, пересекается ли кандидат по времени с какой-либо из
// существующих записей того же мастера на ту же дату. Проверка
// исключительно предупредительная: двойная запись может быть сознательным
// решением администратора, поэтому вызывающий код логирует конфликт, но
// запись не блокирует.
func HasConflict(candidate models.Appointment, existing []models.Appointment) bool {
	return len(FindConflicts(candidate, existing)) > 0
}

// FindConflicts возвращает записи, пересекающиеся с кандидатом.
func FindConflicts(candidate models.Appointment, existing []models.Appointment) []models.Appointment {
	candStart, err := parseMinutes(candidate.Time)
	if err != nil {
		return nil
	}
	candEnd := candStart + candidate.Duration

	var conflicts []models.Appointment
	for _, a := range existing {
		if a.ID == candidate.ID {
			continue // сравнение с самим собой при редактировании
		}
		if a.EmployeeID != candidate.EmployeeID || a.Date != candidate.Date {
			continue
		}
		start, err := parseMinutes(a.Time)
		if err != nil {
			continue
		}
		if overlaps(candStart, candEnd, start, start+a.Duration) {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts
}
