package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentmentor/agentqa-go/pkg/core"
	"github.com/agentmentor/agentqa-go/pkg/errors"
)

// SQLiteStore is the durable Store implementation. Records live in an
// append-only table whose AUTOINCREMENT rowid provides the sequence, so
// concurrent appenders each get a distinct position.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite-backed memory store at path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.MemoryStoreFailed, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}
	if err := store.ensureInitialized(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// WAL mode lets a retrieve run concurrently with an append.
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.MemoryStoreFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS memory_records (
            sequence    INTEGER PRIMARY KEY AUTOINCREMENT,
            issue_codes TEXT NOT NULL,
            snippets    TEXT NOT NULL,
            session_id  TEXT,
            created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
        );
        `
		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.MemoryStoreFailed, "failed to initialize database")
			return
		}
	})
	return initErr
}

func (s *SQLiteStore) Append(ctx context.Context, rec core.MemoryRecord) (core.MemoryRecord, error) {
	if err := s.ensureInitialized(); err != nil {
		return core.MemoryRecord{}, err
	}

	codesJSON, err := json.Marshal(rec.IssueCodes)
	if err != nil {
		return core.MemoryRecord{}, errors.Wrap(err, errors.InvalidInput, "failed to marshal issue codes")
	}
	snippetsJSON, err := json.Marshal(rec.Snippets)
	if err != nil {
		return core.MemoryRecord{}, errors.Wrap(err, errors.InvalidInput, "failed to marshal snippets")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_records (issue_codes, snippets, session_id) VALUES (?, ?, ?)`,
		string(codesJSON), string(snippetsJSON), nullable(rec.SessionID),
	)
	if err != nil {
		return core.MemoryRecord{}, errors.WithFields(
			errors.Wrap(err, errors.MemoryStoreFailed, "failed to append memory record"),
			errors.Fields{"session_id": rec.SessionID},
		)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return core.MemoryRecord{}, errors.Wrap(err, errors.MemoryStoreFailed, "failed to read assigned sequence")
	}
	rec.Sequence = seq
	return rec, nil
}

func (s *SQLiteStore) Retrieve(ctx context.Context, codes []core.IssueCode, limit int) ([]string, error) {
	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	return rankAndCollect(records, codes, limit), nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]string, error) {
	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	return recentSnippets(records, limit), nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	if err := s.ensureInitialized(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_records`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.MemoryStoreFailed, "failed to count memory records")
	}
	return n, nil
}

// scan loads the full log ordered by sequence. Ranking happens in process;
// the log stays small because every evaluation writes at most one record.
func (s *SQLiteStore) scan(ctx context.Context) ([]core.MemoryRecord, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence, issue_codes, snippets, COALESCE(session_id, '') FROM memory_records ORDER BY sequence ASC`)
	if err != nil {
		return nil, errors.Wrap(err, errors.MemoryStoreFailed, "failed to scan memory records")
	}
	defer rows.Close()

	var records []core.MemoryRecord
	for rows.Next() {
		var (
			rec          core.MemoryRecord
			codesJSON    string
			snippetsJSON string
		)
		if err := rows.Scan(&rec.Sequence, &codesJSON, &snippetsJSON, &rec.SessionID); err != nil {
			return nil, errors.Wrap(err, errors.MemoryStoreFailed, "failed to scan memory record row")
		}
		if err := json.Unmarshal([]byte(codesJSON), &rec.IssueCodes); err != nil {
			return nil, errors.Wrap(err, errors.MemoryStoreFailed, "corrupt issue_codes column")
		}
		if err := json.Unmarshal([]byte(snippetsJSON), &rec.Snippets); err != nil {
			return nil, errors.Wrap(err, errors.MemoryStoreFailed, "corrupt snippets column")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.MemoryStoreFailed, "failed to iterate memory records")
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
