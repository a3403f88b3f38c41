package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// Runs only against a disposable database; the tables are shared with
// whatever else uses it, so every row is keyed by a unique suffix.
func openPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := ConnectPostgres(context.Background(), url)
	if err != nil {
		t.Fatalf("ConnectPostgres: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestPostgresStore_HistoryWindow(t *testing.T) {
	s := openPostgresTestStore(t)
	ctx := context.Background()
	patient := fmt.Sprintf("pg-%d", time.Now().UnixNano())

	base := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < 12; i++ {
		_, err := s.SaveReport(ctx, Report{
			PatientID: patient,
			Medicines: []string{fmt.Sprintf("Drug%02d", i)},
			RiskLevel: "Low",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	rows, err := s.RecentMedicines(ctx, patient, 10)
	if err != nil {
		t.Fatalf("RecentMedicines: %v", err)
	}
	if len(rows) != 10 || rows[0] != `["Drug11"]` {
		t.Fatalf("rows=%v", rows)
	}

	reports, err := s.ReportsForPatient(ctx, patient)
	if err != nil {
		t.Fatalf("ReportsForPatient: %v", err)
	}
	if len(reports) != 12 || reports[0].Medicines[0] != "Drug11" {
		t.Fatalf("reports=%+v", reports)
	}
}

func TestPostgresStore_Users(t *testing.T) {
	s := openPostgresTestStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("user-%d", time.Now().UnixNano())

	if err := s.CreateUser(ctx, name, "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, name, "hash"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("err=%v, want ErrUserExists", err)
	}
	if _, err := s.PasswordHash(ctx, name+"-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}
