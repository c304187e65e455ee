package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alucardeht/specsync/internal/logger"
	"github.com/alucardeht/specsync/internal/syncer"
)

var log = logger.ForComponent("history")

const DefaultLimit = 20

// Run is one recorded sync attempt.
type Run struct {
	ID           string
	Trigger      string
	StartedAt    time.Time
	Duration     time.Duration
	Changed      bool
	BytesWritten int
	DocHash      string
	Kind         syncer.Kind
	Error        string
}

func (r Run) OK() bool {
	return r.Kind == syncer.KindNone
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements syncer.Recorder.
func (s *Store) Record(ctx context.Context, result syncer.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var message string
	if result.Err != nil {
		message = result.Err.Error()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, trigger, started_at, duration_ms, changed, bytes_written, doc_hash, kind, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Trigger, result.StartedAt.UTC(), result.Duration.Milliseconds(),
		result.Changed, result.BytesWritten, result.DocHash, string(result.Kind), message,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", result.ID, err)
	}

	log.Debug("run recorded", "id", result.ID, "kind", result.Kind)
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger, started_at, duration_ms, changed, bytes_written, COALESCE(doc_hash, ''), COALESCE(kind, ''), COALESCE(error_message, '')
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			durationMs int64
			kind       string
		)
		if err := rows.Scan(&r.ID, &r.Trigger, &r.StartedAt, &durationMs, &r.Changed, &r.BytesWritten, &r.DocHash, &kind, &r.Error); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Kind = syncer.Kind(kind)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Prune deletes runs older than the given age and returns how many were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UTC()
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		log.Info("pruned old runs", "count", rows)
	}
	return rows, nil
}
