package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"demand-forecast/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no history entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Entry is one applied forecast invocation.
type Entry struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	model.PredictRequest
	Kind       string    `json:"kind"`
	StatusCode int       `json:"status_code"`
	Points     int       `json:"points"`
	OutputText string    `json:"output_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store keeps forecast history in sqlite.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	logger.Infow("history database ready", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_history (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_date TEXT NOT NULL,
			end_time TEXT NOT NULL,
			kind TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			points INTEGER NOT NULL,
			output_text TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_history_created ON forecast_history(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_history_session ON forecast_history(session_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts e, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO forecast_history(
  id, session_id, start_date, start_time, end_date, end_time, kind, status_code, points, output_text, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		e.ID,
		e.SessionID,
		e.StartDate,
		e.StartTime,
		e.EndDate,
		e.EndTime,
		e.Kind,
		e.StatusCode,
		e.Points,
		e.OutputText,
		e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	return nil
}

const selectColumns = `id, session_id, start_date, start_time, end_date, end_time, kind, status_code, points, output_text, created_at`

// List returns the newest entries first. sessionID filters when non-empty.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ` + selectColumns + ` FROM forecast_history`
	args := []any{}
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM forecast_history WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return e, nil
}

// Prune deletes entries created before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forecast_history WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// StartPruner removes entries older than retention every interval until ctx ends.
func (s *Store) StartPruner(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		s.logger.Infow("history pruning disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Prune(ctx, s.now().Add(-retention))
				if err != nil {
					s.logger.Errorw("history pruning failed", "error", err)
					continue
				}
				if n > 0 {
					s.logger.Infow("history pruned", "removed", n)
				}
			}
		}
	}()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var created int64
	if err := sc.Scan(
		&e.ID,
		&e.SessionID,
		&e.StartDate,
		&e.StartTime,
		&e.EndDate,
		&e.EndTime,
		&e.Kind,
		&e.StatusCode,
		&e.Points,
		&e.OutputText,
		&created,
	); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return e, nil
}
