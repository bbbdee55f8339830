package engine

import (
	"testing"

	"salon_server_go/models"
)

func appt(id string, employeeID int64, date, timeOfDay string, duration int) models.Appointment {
	return models.Appointment{
		ID:          id,
		EmployeeID:  employeeID,
		Date:        date,
		Time:        timeOfDay,
		Duration:    duration,
		Client:      "Test Client",
		ServiceType: "haircut",
	}
}

func TestHasConflictOverlap(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.Appointment
		existing  models.Appointment
		want      bool
	}{
		{
			name:      "полное пересечение",
			candidate: appt("a", 1, "2024-03-01", "10:00", 60),
			existing:  appt("b", 1, "2024-03-01", "10:00", 60),
			want:      true,
		},
		{
			name:      "частичное пересечение",
			candidate: appt("a", 1, "2024-03-01", "10:30", 60),
			existing:  appt("b", 1, "2024-03-01", "10:00", 60),
			want:      true,
		},
		{
			name:      "конец ровно в начале другой — не конфликт",
			candidate: appt("a", 1, "2024-03-01", "09:00", 60),
			existing:  appt("b", 1, "2024-03-01", "10:00", 60),
			want:      false,
		},
		{
			name:      "начало ровно в конце другой — не конфликт",
			candidate: appt("a", 1, "2024-03-01", "11:00", 30),
			existing:  appt("b", 1, "2024-03-01", "10:00", 60),
			want:      false,
		},
		{
			name:      "другой мастер",
			candidate: appt("a", 1, "2024-03-01", "10:00", 60),
			existing:  appt("b", 2, "2024-03-01", "10:00", 60),
			want:      false,
		},
		{
			name:      "другая дата",
			candidate: appt("a", 1, "2024-03-01", "10:00", 60),
			existing:  appt("b", 1, "2024-03-02", "10:00", 60),
			want:      false,
		},
		{
			name:      "вложенный интервал",
			candidate: appt("a", 1, "2024-03-01", "10:15", 15),
			existing:  appt("b", 1, "2024-03-01", "10:00", 60),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasConflict(tt.candidate, []models.Appointment{tt.existing})
			if got != tt.want {
				t.Errorf("HasConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Конфликт симметричен: если A пересекается с B, то B пересекается с A.
func TestHasConflictSymmetry(t *testing.T) {
	pairs := [][2]models.Appointment{
		{appt("a", 1, "2024-03-01", "10:00", 60), appt("b", 1, "2024-03-01", "10:30", 60)},
		{appt("a", 1, "2024-03-01", "09:00", 60), appt("b", 1, "2024-03-01", "10:00", 60)},
		{appt("a", 1, "2024-03-01", "10:00", 30), appt("b", 2, "2024-03-01", "10:00", 30)},
		{appt("a", 1, "2024-03-01", "10:15", 15), appt("b", 1, "2024-03-01", "10:00", 60)},
	}
	for _, p := range pairs {
		ab := HasConflict(p[0], []models.Appointment{p[1]})
		ba := HasConflict(p[1], []models.Appointment{p[0]})
		if ab != ba {
			t.Errorf("нарушена симметрия: hasConflict(A,[B])=%v, hasConflict(B,[A])=%v (%s %s vs %s %s)",
				ab, ba, p[0].Time, p[0].Date, p[1].Time, p[1].Date)
		}
	}
}

// Редактируемая запись не конфликтует сама с собой.
func TestHasConflictIgnoresSelf(t *testing.T) {
	a := appt("same-id", 1, "2024-03-01", "10:00", 60)
	if HasConflict(a, []models.Appointment{a}) {
		t.Error("запись не должна конфликтовать сама с собой при редактировании")
	}
}

func TestFindConflictsReturnsAllOverlapping(t *testing.T) {
	candidate := appt("c", 1, "2024-03-01", "10:00", 120)
	existing := []models.Appointment{
		appt("e1", 1, "2024-03-01", "09:30", 60),
		appt("e2", 1, "2024-03-01", "11:00", 30),
		appt("e3", 1, "2024-03-01", "12:00", 30), // начинается ровно в конце кандидата
	}
	got := FindConflicts(candidate, existing)
	if len(got) != 2 {
		t.Fatalf("FindConflicts() вернул %d записей, ожидалось 2", len(got))
	}
}
