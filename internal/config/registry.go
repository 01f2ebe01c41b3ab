package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "tapp"
	configFile = "config.yaml"
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/tapp or $HOME/.config/tapp
//   - macOS: $HOME/.config/tapp
//   - Windows: %LOCALAPPDATA%\tapp
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// FileStore persists the configuration as a YAML file.
// Writes are atomic (temp file + rename) and the file is readable only by
// the current user since it holds credentials.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the file at path.
// An empty path selects the default location from GetConfigPath.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Path returns the file the store reads and writes.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the configuration from disk.
func (f *FileStore) Load() (*Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileStore) load() (*Configuration, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoConfiguration
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	return &cfg, nil
}

// Save writes the configuration to disk.
func (f *FileStore) Save(cfg *Configuration) error {
	if cfg == nil {
		return errors.New("cannot save nil configuration")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(cfg)
}

// Update applies fn to the record on disk while holding the store lock.
func (f *FileStore) Update(fn func(cfg *Configuration)) (*Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	fn(cfg)
	if err := f.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *FileStore) save(cfg *Configuration) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := cfg.Clone()
	out.Version = CurrentVersion

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# tapp client configuration
# Holds the attribution credentials and cached origin link for this install.
# Do not share this file.

`)
	data = append(header, data...)

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Clear removes the configuration file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove config file: %w", err)
	}
	return nil
}
