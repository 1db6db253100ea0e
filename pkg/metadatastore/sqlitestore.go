package metadatastore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mimir-aip/winequality/pkg/models"
)

// SQLiteStore provides SQLite-based persistence for training runs
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based run registry
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
	}

	// Format: file:path?param=value
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serialises writes anyway, keep the pool small. Every connection to an
	// in-memory database is a separate database, so those get exactly one.
	db.SetMaxOpenConns(10)
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}

	// In-memory databases report "memory" or "delete", which is fine for tests
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		db.Close()
		return nil, fmt.Errorf("unexpected journal mode: got %s", journalMode)
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY.
// This is a safety net on top of the busy_timeout pragma.
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if err.Error() == "database is locked (5) (SQLITE_BUSY)" {
			// 10ms, 20ms, 40ms, ...
			backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
			time.Sleep(backoff)
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		run_trigger TEXT NOT NULL,
		source TEXT NOT NULL,
		model_path TEXT,
		f1_weighted REAL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_started_at ON training_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_training_runs_status ON training_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run
func (s *SQLiteStore) SaveRun(run *models.TrainingRun) error {
	if err := run.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	var f1 sql.NullFloat64
	if run.Metrics != nil {
		f1 = sql.NullFloat64{Float64: run.Metrics.F1Weighted, Valid: true}
	}
	var finished sql.NullInt64
	if run.FinishedAt != nil {
		finished = sql.NullInt64{Int64: run.FinishedAt.UnixNano(), Valid: true}
	}

	query := `
		INSERT OR REPLACE INTO training_runs (id, status, run_trigger, source, model_path, f1_weighted, started_at, finished_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			run.ID,
			string(run.Status),
			string(run.Trigger),
			run.Source.String(),
			run.ModelPath,
			f1,
			run.StartedAt.UnixNano(),
			finished,
			string(data),
		)
		return err
	}, 5)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*models.TrainingRun, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM training_runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, models.NotFoundError("run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(data)
}

// ListRuns lists runs, newest first
func (s *SQLiteStore) ListRuns(limit int) ([]*models.TrainingRun, error) {
	query := `SELECT data FROM training_runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.TrainingRun, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		run, err := decodeRun(data)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started successful run
func (s *SQLiteStore) LatestRun() (*models.TrainingRun, error) {
	var data string
	query := `SELECT data FROM training_runs WHERE status = ? ORDER BY started_at DESC, id LIMIT 1`
	err := s.db.QueryRow(query, string(models.RunStatusSucceeded)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, models.NotFoundError("run", "latest")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return decodeRun(data)
}

func decodeRun(data string) (*models.TrainingRun, error) {
	var run models.TrainingRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}
