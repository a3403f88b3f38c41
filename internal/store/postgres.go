package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore is used when ENABLE_DB=true.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func ConnectPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patient_history (
			id BIGSERIAL PRIMARY KEY,
			patient_id TEXT NOT NULL,
			medicines TEXT,
			risk_level TEXT,
			alert_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patient_history_patient
			ON patient_history (patient_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS drug_reference (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			use TEXT,
			side_effects TEXT,
			caution TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, r Report) (int64, error) {
	meds, err := encodeMedicines(r.Medicines)
	if err != nil {
		return 0, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO patient_history (patient_id, medicines, risk_level, alert_message, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.PatientID, meds, r.RiskLevel, r.AlertMessage, r.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) RecentMedicines(ctx context.Context, patientID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(medicines, '') FROM patient_history WHERE patient_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReportsForPatient(ctx context.Context, patientID string) ([]Report, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, patient_id, COALESCE(medicines, ''), COALESCE(risk_level, ''), COALESCE(alert_message, ''), created_at
FROM patient_history
WHERE patient_id = $1
ORDER BY created_at DESC, id DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		var (
			r    Report
			meds string
		)
		if err := rows.Scan(&r.ID, &r.PatientID, &meds, &r.RiskLevel, &r.AlertMessage, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Medicines = decodeMedicines(meds)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SearchDrugs(ctx context.Context, query string) ([]Drug, error) {
	q := `SELECT id, name, COALESCE(category, ''), COALESCE(use, ''), COALESCE(side_effects, ''), COALESCE(caution, '') FROM drug_reference`
	var args []any
	if term := strings.TrimSpace(query); term != "" {
		q += ` WHERE name ILIKE $1 OR category ILIKE $1`
		args = append(args, "%"+term+"%")
	}
	q += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Drug{}
	for rows.Next() {
		var d Drug
		if err := rows.Scan(&d.ID, &d.Name, &d.Category, &d.Use, &d.SideEffects, &d.Caution); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountDrugs(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM drug_reference`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) InsertDrugs(ctx context.Context, drugs []Drug) error {
	batch := &pgx.Batch{}
	for _, d := range drugs {
		batch.Queue(`INSERT INTO drug_reference (name, category, use, side_effects, caution) VALUES ($1, $2, $3, $4, $5)`,
			d.Name, d.Category, d.Use, d.SideEffects, d.Caution)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (username, password_hash) VALUES ($1, $2)`, username, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) PasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE username = $1`, username).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}
