// Package storage persists audit records and cached embeddings in a SQLite
// database under the repository's .anchor directory.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Tanishq1030/Anchor/internal/evidence"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

// Store provides persistence for audit runs, their records, and the
// cross-run embedding cache.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// RunSummary describes one stored audit run.
type RunSummary struct {
	ID            string         `json:"id"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
	SymbolCount   int            `json:"symbol_count"`
	VerdictCounts map[string]int `json:"verdict_counts"`
}

// Open opens or creates the records database at <anchorDir>/records.db.
func Open(anchorDir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(anchorDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create anchor directory: %w", err)
	}

	dbPath := filepath.Join(anchorDir, "records.db")
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open records database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}

	if !dbExists {
		logger.Info("Creating records database", map[string]interface{}{
			"path": dbPath,
		})
	}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize records schema: %w", err)
	}
	return store, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			symbol_count INTEGER DEFAULT 0,
			verdict_counts TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			verdict TEXT NOT NULL,
			record TEXT NOT NULL,
			PRIMARY KEY (run_id, symbol)
		);
		CREATE INDEX IF NOT EXISTS idx_records_verdict ON records(verdict);

		CREATE TABLE IF NOT EXISTS embeddings (
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			vector TEXT NOT NULL,
			PRIMARY KEY (provider, model, text_hash)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BeginRun registers a new run.
func (s *Store) BeginRun(runID string, startedAt time.Time) error {
	_, err := s.conn.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		runID, startedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// CompleteRun stores the run's final summary.
func (s *Store) CompleteRun(runID string, completedAt time.Time, symbolCount int, verdictCounts map[string]int) error {
	counts, err := json.Marshal(verdictCounts)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		`UPDATE runs SET completed_at = ?, symbol_count = ?, verdict_counts = ? WHERE id = ?`,
		completedAt.UTC().Format(time.RFC3339), symbolCount, string(counts), runID,
	)
	return err
}

// SaveRecord stores one audit record under its run.
func (s *Store) SaveRecord(runID string, record evidence.AuditRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize audit record: %w", err)
	}
	_, err = s.conn.Exec(
		`INSERT OR REPLACE INTO records (run_id, symbol, verdict, record) VALUES (?, ?, ?, ?)`,
		runID, record.Symbol.QualifiedName, string(record.Verdict), string(payload),
	)
	return err
}

// RecordsForRun loads a run's records ordered by qualified symbol name.
func (s *Store) RecordsForRun(runID string) ([]evidence.AuditRecord, error) {
	rows, err := s.conn.Query(
		`SELECT record FROM records WHERE run_id = ? ORDER BY symbol`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []evidence.AuditRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var record evidence.AuditRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("failed to decode stored record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListRuns returns stored runs, most recent first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(
		`SELECT id, started_at, completed_at, symbol_count, verdict_counts
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run                  RunSummary
			started              string
			completed, counts    sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &completed, &run.SymbolCount, &counts); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, err
		}
		if completed.Valid && completed.String != "" {
			if run.CompletedAt, err = time.Parse(time.RFC3339, completed.String); err != nil {
				return nil, err
			}
		}
		if counts.Valid && counts.String != "" {
			if err := json.Unmarshal([]byte(counts.String), &run.VerdictCounts); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRunID returns the most recent run, or "" when none exist.
func (s *Store) LatestRunID() (string, error) {
	var id string
	err := s.conn.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// GetEmbedding returns a cached vector, or nil when absent.
func (s *Store) GetEmbedding(provider, model, textHash string) ([]float64, error) {
	var payload string
	err := s.conn.QueryRow(
		`SELECT vector FROM embeddings WHERE provider = ? AND model = ? AND text_hash = ?`,
		provider, model, textHash,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(payload), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// PutEmbedding stores a vector in the cross-run cache.
func (s *Store) PutEmbedding(provider, model, textHash string, vec []float64) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		`INSERT OR REPLACE INTO embeddings (provider, model, text_hash, vector) VALUES (?, ?, ?, ?)`,
		provider, model, textHash, string(payload),
	)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
