package controllers

import (
	"path/filepath"
	"testing"

	"salon_server_go/data"
	"salon_server_go/models"
)

func openTestStore(t *testing.T) *data.Store {
	t.Helper()
	s, err := data.OpenStore("sqlite3", filepath.Join(t.TempDir(), "salon_ctrl_test.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateEmployee(t *testing.T, s *data.Store, name string) int64 {
	t.Helper()
	id, err := s.CreateEmployee(&models.Employee{
		Name:           name,
		Color:          "#3366ff",
		Specialization: models.SpecializationHairdresser,
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return id
}
