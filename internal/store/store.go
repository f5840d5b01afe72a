package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/simtree/internal/registry"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into PRAGMA user_version.
// 1: snapshots table with record_type and metadata_key indexes.
const schemaVersion = 1

// connPragmas configure every connection: WAL so listings can read while a
// snapshot is written, NORMAL sync, a 5s busy timeout and foreign keys.
var connPragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// Store persists record snapshots in SQLite.
type Store struct {
	db    *sql.DB
	reg   *registry.Registry
	clock SeqSource
	ids   IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry sets the registry used to classify records on save and to
// resolve record types on load. Default: registry.Default.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Store) { s.reg = reg }
}

// WithClock sets the logical clock. Default: a Clock resuming after the
// highest stored seq.
func WithClock(c SeqSource) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets the snapshot id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// Open opens (creating if needed) the snapshot database at path and applies
// the connection pragmas and schema. ":memory:" gives a throwaway store.
// Opening an existing database is safe; the schema is idempotent.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := connect(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	s := &Store{db: db, reg: registry.Default, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		last, err := s.lastSeq()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open store %s: %w", path, err)
		}
		s.clock = NewClockAt(last)
	}
	return s, nil
}

// connect opens a single-connection pool and prepares it for use.
func connect(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// exist per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	for _, p := range connPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("stamp schema version: %w", err)
	}
	return db, nil
}

func (s *Store) lastSeq() (int64, error) {
	var last int64
	err := s.db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM snapshots").Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return last, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// verifyPragma reads a pragma back and compares it with expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
