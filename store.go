package tapp

import "github.com/tapp-so/tapp-go/internal/config"

// Configuration is the persisted record of an install.
type Configuration = config.Configuration

// NewMemoryStore returns a store that keeps the record in memory.
func NewMemoryStore() Store {
	return config.NewMemoryStore(nil)
}

// NewFileStore returns a YAML file store at path. An empty path selects
// the default location under the user config directory.
func NewFileStore(path string) (Store, error) {
	return config.NewFileStore(path)
}

// OpenSQLiteStore opens a SQLite-backed store. Close it with the returned
// function once the client is closed.
func OpenSQLiteStore(path string) (Store, func() error, error) {
	s, err := config.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
