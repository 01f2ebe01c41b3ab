package config

import (
	"database/sql"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
)

// recordKey addresses the one configuration row of an installation.
const recordKey = "tapp.configuration"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps the configuration in a SQLite key-value table under a
// fixed key. It suits hosts that already ship a database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the configuration row.
func (s *SQLiteStore) Load() (*Configuration, error) {
	return load(s.db)
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func load(q querier) (*Configuration, error) {
	var raw []byte
	err := q.QueryRow(`SELECT value FROM kv WHERE key = ?`, recordKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoConfiguration
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var cfg Configuration
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// Save upserts the configuration row.
func (s *SQLiteStore) Save(cfg *Configuration) error {
	if cfg == nil {
		return errors.New("cannot save nil configuration")
	}
	return save(s.db, cfg)
}

// Update applies fn to the configuration row inside a transaction.
func (s *SQLiteStore) Update(fn func(cfg *Configuration)) (*Configuration, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cfg, err := load(tx)
	if err != nil {
		return nil, err
	}
	fn(cfg)
	if err := save(tx, cfg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit configuration: %w", err)
	}
	return cfg, nil
}

func save(q querier, cfg *Configuration) error {
	out := cfg.Clone()
	out.Version = CurrentVersion

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		recordKey, raw)
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// Clear deletes the configuration row.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, recordKey); err != nil {
		return fmt.Errorf("failed to clear configuration: %w", err)
	}
	return nil
}
