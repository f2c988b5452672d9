package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DBFileName is the history database file name within a session folder.
const DBFileName = "history.db"

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore persists conversation turns in SQLite.
type HistoryStore struct {
	db   *sql.DB
	path string
}

// NewHistoryStore opens the history database in dir, creating the
// directory and schema on first use.
func NewHistoryStore(dir string) (*HistoryStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &HistoryStore{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// Open is a HistoryFactory that stores history inside the session folder.
func Open(folder string) (driven.HistoryStore, error) {
	s, err := NewHistoryStore(folder)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) Path() string { return s.path }
func (s *HistoryStore) Close() error { return s.db.Close() }

// migrate applies the *.up.sql files whose numeric prefix is above the
// recorded schema version. Each file runs in its own transaction.
func (s *HistoryStore) migrate(fsys fs.FS) error {
	const ledger = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(ledger); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	var applied int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)

	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= applied {
			continue
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := s.apply(string(script)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *HistoryStore) apply(script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Append adds a turn to the end of the history.
func (s *HistoryStore) Append(ctx context.Context, turn domain.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO turns (role, content, created_at) VALUES (?, ?, ?)",
		turn.Role, turn.Content, turn.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// Recent returns the last n turns in chronological order.
func (s *HistoryStore) Recent(ctx context.Context, n int) ([]domain.Turn, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM turns ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}
	return scanTurns(rows)
}

// All returns the whole history in chronological order.
func (s *HistoryStore) All(ctx context.Context) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT role, content, created_at FROM turns ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	return scanTurns(rows)
}

func scanTurns(rows *sql.Rows) ([]domain.Turn, error) {
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var (
			t       domain.Turn
			created string
		)
		if err := rows.Scan(&t.Role, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}
