package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestSQLiteStore_ReportsNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	if _, err := s.SaveReport(ctx, Report{PatientID: "p1", Medicines: []string{"Aspirin"}, RiskLevel: "Low", Timestamp: base}); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if _, err := s.SaveReport(ctx, Report{PatientID: "p1", Medicines: []string{"Warfarin", "Aspirin"}, RiskLevel: "Critical", AlertMessage: "bleeding", Timestamp: base.Add(time.Hour)}); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if _, err := s.SaveReport(ctx, Report{PatientID: "p2", Medicines: []string{"Metformin"}, Timestamp: base}); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	reports, err := s.ReportsForPatient(ctx, "p1")
	if err != nil {
		t.Fatalf("ReportsForPatient: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("len(reports)=%d, want 2", len(reports))
	}
	if reports[0].RiskLevel != "Critical" || len(reports[0].Medicines) != 2 {
		t.Fatalf("newest report first, got %+v", reports[0])
	}
	if !reports[0].Timestamp.Equal(base.Add(time.Hour)) {
		t.Fatalf("Timestamp=%s, want %s", reports[0].Timestamp, base.Add(time.Hour))
	}

	none, err := s.ReportsForPatient(ctx, "nobody")
	if err != nil {
		t.Fatalf("ReportsForPatient unknown: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestSQLiteStore_RecentMedicinesWindow(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		if _, err := s.SaveReport(ctx, Report{PatientID: "p1", Medicines: []string{"Drug" + string(rune('A'+i))}, Timestamp: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("SaveReport %d: %v", i, err)
		}
	}

	raw, err := s.RecentMedicines(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("RecentMedicines: %v", err)
	}
	if len(raw) != 10 {
		t.Fatalf("len=%d, want 10", len(raw))
	}
	if raw[0] != `["DrugL"]` || raw[9] != `["DrugC"]` {
		t.Fatalf("unexpected window bounds: first=%s last=%s", raw[0], raw[9])
	}
}

func TestSQLiteStore_MalformedMedicinesRenderEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, `INSERT INTO patient_history (patient_id, medicines, risk_level, created_at_unix_ms) VALUES ('p1', 'not json', 'Low', 1)`); err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	reports, err := s.ReportsForPatient(ctx, "p1")
	if err != nil {
		t.Fatalf("ReportsForPatient: %v", err)
	}
	if len(reports) != 1 || len(reports[0].Medicines) != 0 || reports[0].Medicines == nil {
		t.Fatalf("expected one report with empty medicines, got %#v", reports)
	}
}

func TestSQLiteStore_SearchDrugs(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertDrugs(ctx, DefaultDrugs); err != nil {
		t.Fatalf("InsertDrugs: %v", err)
	}

	all, err := s.SearchDrugs(ctx, "  ")
	if err != nil {
		t.Fatalf("SearchDrugs all: %v", err)
	}
	if len(all) != len(DefaultDrugs) {
		t.Fatalf("len(all)=%d, want %d", len(all), len(DefaultDrugs))
	}

	byName, err := s.SearchDrugs(ctx, "warf")
	if err != nil {
		t.Fatalf("SearchDrugs name: %v", err)
	}
	if len(byName) != 1 || byName[0].Name != "Warfarin" || byName[0].Caution == "" {
		t.Fatalf("unexpected name match %+v", byName)
	}

	byCategory, err := s.SearchDrugs(ctx, "nsaid")
	if err != nil {
		t.Fatalf("SearchDrugs category: %v", err)
	}
	if len(byCategory) != 2 {
		t.Fatalf("expected Ibuprofen and Aspirin by category, got %+v", byCategory)
	}
}

func TestSQLiteStore_Users(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, "alice", "hash-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, "alice", "hash-2"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate CreateUser err=%v, want ErrUserExists", err)
	}
	hash, err := s.PasswordHash(ctx, "alice")
	if err != nil || hash != "hash-1" {
		t.Fatalf("PasswordHash=%q, %v", hash, err)
	}
	if _, err := s.PasswordHash(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PasswordHash unknown err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_RecentMedicinesQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT medicines FROM patient_history WHERE patient_id = \? ORDER BY created_at_unix_ms DESC, id DESC LIMIT \?`).
		WithArgs("p1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"medicines"}).AddRow(`["Aspirin"]`).AddRow(nil))

	raw, err := NewSQLiteStore(db).RecentMedicines(context.Background(), "p1", 10)
	if err != nil {
		t.Fatalf("RecentMedicines: %v", err)
	}
	if len(raw) != 2 || raw[0] != `["Aspirin"]` || raw[1] != "" {
		t.Fatalf("unexpected rows %#v", raw)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLiteStore_SaveReportError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO patient_history`).WillReturnError(errors.New("table patient_history has no column named created_at_unix_ms"))

	if _, err := NewSQLiteStore(db).SaveReport(context.Background(), Report{PatientID: "p1", Medicines: []string{"Aspirin"}}); err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
