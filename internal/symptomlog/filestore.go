package symptomlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileStore appends entries to a JSONL file, one JSON object per line.
// Writes within this process are serialized; concurrent writers from
// other processes are not coordinated here and must be serialized
// externally.
type FileStore struct {
	path string
}

// NewFileStore opens (or creates) the JSONL log at path.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open symptom log: %w", err)
	}
	_ = f.Close()
	return &FileStore{path: path}, nil
}

func (s *FileStore) Append(_ context.Context, e Entry) error {
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open symptom log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (s *FileStore) Recent(_ context.Context, patientID string, window time.Duration) ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open symptom log: %w", err)
	}
	defer f.Close()

	cutoff := time.Now().UTC().Add(-window)
	var out []Entry

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			// A torn trailing line from an interrupted write is
			// skipped rather than failing every later read.
			continue
		}
		if e.PatientID != patientID || e.TS.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan symptom log: %w", err)
	}
	return out, nil
}

func (s *FileStore) Trends(ctx context.Context, patientID string, window time.Duration) ([]Trend, error) {
	entries, err := s.Recent(ctx, patientID, window)
	if err != nil {
		return nil, err
	}
	return ComputeTrends(entries), nil
}
