// Package store is a persistent cache of compiled classes backed by SQLite.
// Each row holds the CBOR record of one class together with its content
// fingerprint, so a rebuild can tell which classes actually changed.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"

	"github.com/chazu/groovypp/image"
)

// ErrNotFound indicates the requested class is not cached.
var ErrNotFound = errors.New("class not found")

// ErrChecksum indicates a cached payload no longer matches its checksum.
var ErrChecksum = errors.New("cached payload checksum mismatch")

const schema = `CREATE TABLE IF NOT EXISTS classes (
	name        TEXT PRIMARY KEY,
	module      TEXT NOT NULL,
	session     TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	checksum    INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	updated     INTEGER NOT NULL
)`

// Entry describes one cached class without its payload.
type Entry struct {
	Name        string
	Module      string
	Session     string
	Fingerprint string
	Size        int
	Updated     time.Time
}

// Stats summarizes a PutImage call.
type Stats struct {
	Written   int
	Unchanged int
}

// Store handles SQLite storage for compiled classes.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	log  commonlog.Logger
	now  func() time.Time
}

// Open opens or creates the cache database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
		log:  commonlog.GetLogger("groovypp.store"),
		now:  time.Now,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

func checksum(payload []byte) int64 {
	return int64(xxh3.Hash(payload))
}

// PutImage records every class of img in one transaction. Classes whose
// fingerprint is already cached are left untouched.
func (s *Store) PutImage(ctx context.Context, img *image.Image) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i := range img.Classes {
		changed, err := s.put(ctx, tx, img.Module, img.Session, &img.Classes[i])
		if err != nil {
			return Stats{}, err
		}
		if changed {
			stats.Written++
		} else {
			stats.Unchanged++
		}
	}
	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit: %w", err)
	}
	s.log.Infof("cached module %s: %d written, %d unchanged", img.Module, stats.Written, stats.Unchanged)
	return stats, nil
}

// Put records a single class. It reports whether the row was written.
func (s *Store) Put(ctx context.Context, module, session string, c *image.Class) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, s.db, module, session, c)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) put(ctx context.Context, db execer, module, session string, c *image.Class) (bool, error) {
	fp := hex.EncodeToString(c.Fingerprint)

	var existing string
	err := db.QueryRowContext(ctx, "SELECT fingerprint FROM classes WHERE name = ?", c.Name).Scan(&existing)
	switch {
	case err == nil && existing == fp:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("querying %s: %w", c.Name, err)
	}

	payload, err := image.EncodeClass(c)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", c.Name, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO classes (name, module, session, fingerprint, checksum, payload, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, module, session, fp, checksum(payload), payload, s.now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("saving %s: %w", c.Name, err)
	}
	s.log.Debugf("cached %s %s", c.Name, fp)
	return true, nil
}

// Get loads a cached class.
func (s *Store) Get(ctx context.Context, name string) (*image.Class, error) {
	var (
		payload []byte
		sum     int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT payload, checksum FROM classes WHERE name = ?", name).Scan(&payload, &sum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}
	if checksum(payload) != sum {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, name)
	}
	return image.DecodeClass(payload)
}

// Fingerprint returns the cached fingerprint of a class as hex.
func (s *Store) Fingerprint(ctx context.Context, name string) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, "SELECT fingerprint FROM classes WHERE name = ?", name).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", name, err)
	}
	return fp, nil
}

// List returns every cached class ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, module, session, fingerprint, length(payload), updated FROM classes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.Name, &e.Module, &e.Session, &e.Fingerprint, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		e.Updated = time.UnixMilli(updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes the classes of module that are not named in keep and
// returns how many rows were removed.
func (s *Store) Prune(ctx context.Context, module string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]bool, len(keep))
	for _, k := range keep {
		live[k] = true
	}
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM classes WHERE module = ?", module)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", module, err)
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning class: %w", err)
		}
		if !live[name] {
			stale = append(stale, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, name := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM classes WHERE name = ?", name); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", name, err)
		}
	}
	return len(stale), nil
}
