// Package cache persists finished layout results between runs. Entries are
// keyed by the engine's layout fingerprint and hold the serialized frame tree
// together with the diagnostics recorded while producing it, so a hit replays
// exactly what a recompute would have reported.
//
// The store is deliberately forgiving: any sqlite or decoding failure after a
// successful Open is logged and treated as a miss. A broken cache must never
// break layout.
package cache

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"typeflow/diag"
	"typeflow/geom"
	"typeflow/render"
)

const schema = `CREATE TABLE IF NOT EXISTS layouts (
	key     INTEGER PRIMARY KEY,
	created INTEGER NOT NULL,
	payload BLOB    NOT NULL
);`

// Store is a sqlite-backed layout cache. Not safe for concurrent use from a
// single process; separate processes may share the database file.
type Store struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open creates or opens the cache database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open layout cache: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize layout cache: %w", err)
	}
	return &Store{conn: conn, log: log.Named("cache")}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Get looks the fingerprint up and rebuilds the stored result. Unreadable
// entries are dropped so the next run stores a fresh one.
func (s *Store) Get(key uint64) ([]*geom.Frame, []diag.Diagnostic, bool) {
	var payload []byte
	err := sqlitex.Execute(s.conn, `SELECT payload FROM layouts WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(key)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				payload, err = io.ReadAll(stmt.ColumnReader(0))
				return err
			},
		})
	if err != nil {
		s.log.Warn("Layout cache lookup failed", zap.Uint64("key", key), zap.Error(err))
		return nil, nil, false
	}
	if payload == nil {
		return nil, nil, false
	}

	frames, diags, err := render.Decode(payload)
	if err != nil {
		s.log.Warn("Dropping unreadable layout cache entry", zap.Uint64("key", key), zap.Error(err))
		s.delete(key)
		return nil, nil, false
	}
	return frames, diags, true
}

// Put stores the result under the fingerprint, replacing any previous entry.
func (s *Store) Put(key uint64, frames []*geom.Frame, diags []diag.Diagnostic) {
	payload, err := render.Encode(frames, diags)
	if err != nil {
		s.log.Warn("Layout cache encoding failed", zap.Uint64("key", key), zap.Error(err))
		return
	}
	err = sqlitex.Execute(s.conn, `INSERT OR REPLACE INTO layouts (key, created, payload) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{int64(key), time.Now().Unix(), payload}})
	if err != nil {
		s.log.Warn("Layout cache store failed", zap.Uint64("key", key), zap.Error(err))
	}
}

func (s *Store) delete(key uint64) {
	err := sqlitex.Execute(s.conn, `DELETE FROM layouts WHERE key = ?`,
		&sqlitex.ExecOptions{Args: []any{int64(key)}})
	if err != nil {
		s.log.Warn("Layout cache delete failed", zap.Uint64("key", key), zap.Error(err))
	}
}

// Len reports the number of cached layouts.
func (s *Store) Len() (int, error) {
	var n int
	err := sqlitex.Execute(s.conn, `SELECT COUNT(*) FROM layouts`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		}})
	if err != nil {
		return 0, fmt.Errorf("count layout cache entries: %w", err)
	}
	return n, nil
}
