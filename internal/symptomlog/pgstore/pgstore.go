// Package pgstore provides a PostgreSQL implementation of
// symptomlog.Store for deployments where the JSONL file is not enough.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/triage-router/internal/symptomlog"
)

//go:embed schema.sql
var schema string

// Store persists symptom entries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Append(ctx context.Context, e symptomlog.Entry) error {
	ts := e.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO symptom_log (ts, patient_id, symptom, severity, note) VALUES ($1, $2, $3, $4, $5)`,
		ts, e.PatientID, e.Symptom, e.Severity, e.Note,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, patientID string, window time.Duration) ([]symptomlog.Entry, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.pool.Query(ctx,
		`SELECT ts, patient_id, symptom, severity, note
		 FROM symptom_log
		 WHERE patient_id = $1 AND ts >= $2
		 ORDER BY ts`,
		patientID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []symptomlog.Entry
	for rows.Next() {
		var e symptomlog.Entry
		if err := rows.Scan(&e.TS, &e.PatientID, &e.Symptom, &e.Severity, &e.Note); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Trends(ctx context.Context, patientID string, window time.Duration) ([]symptomlog.Trend, error) {
	entries, err := s.Recent(ctx, patientID, window)
	if err != nil {
		return nil, err
	}
	return symptomlog.ComputeTrends(entries), nil
}
