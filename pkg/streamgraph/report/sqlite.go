package report

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists reports to SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a report database.
// The path should be a file path (e.g., "./reports.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// ":memory:" gives every connection its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			graph TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			stopped_at INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reports_graph_started
		ON reports(graph, started_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(r *Report) error {
	if r.RunID == "" {
		return ErrMissingRunID
	}
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err = s.db.Exec(`
		INSERT INTO reports (run_id, graph, started_at, stopped_at, failed, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			graph = excluded.graph,
			started_at = excluded.started_at,
			stopped_at = excluded.stopped_at,
			failed = excluded.failed,
			data = excluded.data
	`, r.RunID, r.Graph, r.StartedAt.UnixNano(), r.StoppedAt.UnixNano(), r.Failed(), data)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(runID string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM reports WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	r, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return r, nil
}

// List implements Store.
func (s *SQLiteStore) List(graph string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT run_id, graph, started_at, stopped_at, failed
		FROM reports
		WHERE ? = '' OR graph = ?
		ORDER BY started_at, run_id
	`, graph, graph)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var (
			info             Info
			started, stopped int64
		)
		if err := rows.Scan(&info.RunID, &info.Graph, &started, &stopped, &info.Failed); err != nil {
			return nil, fmt.Errorf("scan report info: %w", err)
		}
		info.StartedAt = time.Unix(0, started).UTC()
		info.StoppedAt = time.Unix(0, stopped).UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM reports WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
