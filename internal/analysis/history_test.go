package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/rxguard/internal/store"
)

type fakeSource struct {
	rows      []string
	err       error
	lastLimit int
	calls     int
}

func (f *fakeSource) RecentMedicines(_ context.Context, _ string, limit int) ([]string, error) {
	f.calls++
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func TestHistoryForDedupesAndSkipsMalformed(t *testing.T) {
	src := &fakeSource{rows: []string{
		`["Warfarin","Aspirin"]`,
		`not json`,
		`["Aspirin"," Metformin "]`,
		`[]`,
	}}
	h := NewHistoryAggregator(src, zerolog.Nop())

	got := h.HistoryFor(context.Background(), "p1")
	want := []string{"Aspirin", "Metformin", "Warfarin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HistoryFor=%v, want %v", got, want)
	}
	if src.lastLimit != HistoryWindow {
		t.Fatalf("limit=%d, want %d", src.lastLimit, HistoryWindow)
	}
}

func TestHistoryForEmptyPatient(t *testing.T) {
	src := &fakeSource{rows: []string{`["Aspirin"]`}}
	h := NewHistoryAggregator(src, zerolog.Nop())

	if got := h.HistoryFor(context.Background(), "  "); len(got) != 0 {
		t.Fatalf("HistoryFor=%v, want empty", got)
	}
	if src.calls != 0 {
		t.Fatal("store should not be queried for an empty id")
	}
}

func TestHistoryForStorageError(t *testing.T) {
	h := NewHistoryAggregator(&fakeSource{err: errors.New("disk gone")}, zerolog.Nop())
	got := h.HistoryFor(context.Background(), "p1")
	if got == nil || len(got) != 0 {
		t.Fatalf("HistoryFor=%v, want empty non-nil", got)
	}
}

func TestHistoryForUsesTenNewestReports(t *testing.T) {
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := s.SaveReport(ctx, store.Report{
			PatientID: "p1",
			Medicines: []string{fmt.Sprintf("Drug%02d", i)},
			RiskLevel: "Low",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	h := NewHistoryAggregator(s, zerolog.Nop())
	got := h.HistoryFor(ctx, "p1")
	if len(got) != 10 {
		t.Fatalf("got %d medicines, want 10: %v", len(got), got)
	}
	for _, old := range []string{"Drug00", "Drug01"} {
		for _, m := range got {
			if m == old {
				t.Fatalf("%s is outside the window but was returned", old)
			}
		}
	}

	if got := h.HistoryFor(ctx, "nobody"); len(got) != 0 {
		t.Fatalf("unknown patient: %v", got)
	}
}
