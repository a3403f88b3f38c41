package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default local store. It keeps a single connection and
// runs in WAL mode so history reads don't block on report writes.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patient_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_id TEXT NOT NULL,
			medicines TEXT,
			risk_level TEXT,
			alert_message TEXT,
			created_at_unix_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patient_history_patient
			ON patient_history (patient_id, created_at_unix_ms DESC)`,
		`CREATE TABLE IF NOT EXISTS drug_reference (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category TEXT,
			use TEXT,
			side_effects TEXT,
			caution TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at_unix_ms INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r Report) (int64, error) {
	meds, err := encodeMedicines(r.Medicines)
	if err != nil {
		return 0, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO patient_history (patient_id, medicines, risk_level, alert_message, created_at_unix_ms) VALUES (?, ?, ?, ?, ?)`,
		r.PatientID, meds, r.RiskLevel, r.AlertMessage, r.Timestamp.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RecentMedicines(ctx context.Context, patientID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT medicines FROM patient_history WHERE patient_id = ? ORDER BY created_at_unix_ms DESC, id DESC LIMIT ?`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw.String)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ReportsForPatient(ctx context.Context, patientID string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, patient_id, medicines, risk_level, alert_message, created_at_unix_ms
FROM patient_history
WHERE patient_id = ?
ORDER BY created_at_unix_ms DESC, id DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		var (
			r                    Report
			meds, risk, alertMsg sql.NullString
			createdMs            int64
		)
		if err := rows.Scan(&r.ID, &r.PatientID, &meds, &risk, &alertMsg, &createdMs); err != nil {
			return nil, err
		}
		r.Medicines = decodeMedicines(meds.String)
		r.RiskLevel = risk.String
		r.AlertMessage = alertMsg.String
		r.Timestamp = time.UnixMilli(createdMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SearchDrugs(ctx context.Context, query string) ([]Drug, error) {
	q := `SELECT id, name, category, use, side_effects, caution FROM drug_reference`
	var args []any
	if term := strings.TrimSpace(query); term != "" {
		q += ` WHERE name LIKE ? OR category LIKE ?`
		like := "%" + term + "%"
		args = append(args, like, like)
	}
	q += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Drug{}
	for rows.Next() {
		var (
			d                                Drug
			category, use, effects, caution sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &category, &use, &effects, &caution); err != nil {
			return nil, err
		}
		d.Category, d.Use, d.SideEffects, d.Caution = category.String, use.String, effects.String, caution.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountDrugs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drug_reference`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) InsertDrugs(ctx context.Context, drugs []Drug) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range drugs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO drug_reference (name, category, use, side_effects, caution) VALUES (?, ?, ?, ?, ?)`,
			d.Name, d.Category, d.Use, d.SideEffects, d.Caution); err != nil {
			return fmt.Errorf("insert drug %q: %w", d.Name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at_unix_ms) VALUES (?, ?, ?)`,
		username, passwordHash, time.Now().UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}
