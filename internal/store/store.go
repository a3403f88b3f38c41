package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("username already exists")
)

// Report is one stored analysis outcome. Reports are append-only.
type Report struct {
	ID           int64     `json:"id"`
	PatientID    string    `json:"patient_id"`
	Medicines    []string  `json:"medicines"`
	RiskLevel    string    `json:"risk_level"`
	AlertMessage string    `json:"alert_message"`
	Timestamp    time.Time `json:"timestamp"`
}

// Drug is a row of the static reference table.
type Drug struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Use         string `json:"use"`
	SideEffects string `json:"side_effects"`
	Caution     string `json:"caution"`
}

// Store is the relational persistence used by the service. Both the SQLite
// and the Postgres implementations satisfy it.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
	EnsureSchema(ctx context.Context) error

	SaveReport(ctx context.Context, r Report) (int64, error)
	// RecentMedicines returns the raw serialized medicine lists of the
	// patient's newest reports, newest first, at most limit entries.
	RecentMedicines(ctx context.Context, patientID string, limit int) ([]string, error)
	ReportsForPatient(ctx context.Context, patientID string) ([]Report, error)

	SearchDrugs(ctx context.Context, query string) ([]Drug, error)
	CountDrugs(ctx context.Context) (int, error)
	InsertDrugs(ctx context.Context, drugs []Drug) error

	CreateUser(ctx context.Context, username, passwordHash string) error
	PasswordHash(ctx context.Context, username string) (string, error)
}

func encodeMedicines(meds []string) (string, error) {
	if meds == nil {
		meds = []string{}
	}
	b, err := json.Marshal(meds)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeMedicines never fails; rows written by older schemas may hold
// anything, and they render as an empty list.
func decodeMedicines(raw string) []string {
	var meds []string
	if err := json.Unmarshal([]byte(raw), &meds); err != nil || meds == nil {
		return []string{}
	}
	return meds
}
