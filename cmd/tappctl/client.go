package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	tapp "github.com/tapp-so/tapp-go"
	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/ui"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store kinds
const (
	storeFile   = "file"
	storeSQLite = "sqlite"
	storeMemory = "memory"
)

const sqliteFile = "tapp.db"

// openedStore is a configuration store together with where it lives.
type openedStore struct {
	tapp.Store
	location string
	close    func() error
}

func (c *cli) openStore() (*openedStore, error) {
	switch c.storeKind {
	case storeFile:
		store, err := config.NewFileStore(c.storePath)
		if err != nil {
			return nil, err
		}
		return &openedStore{Store: store, location: store.Path(), close: func() error { return nil }}, nil

	case storeSQLite:
		path := c.storePath
		if path == "" {
			dir, err := config.GetConfigDir()
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("failed to create config directory: %w", err)
			}
			path = filepath.Join(dir, sqliteFile)
		}
		store, closeStore, err := tapp.OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return &openedStore{Store: store, location: path, close: closeStore}, nil

	case storeMemory:
		return &openedStore{Store: tapp.NewMemoryStore(), location: "memory", close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unknown store %q (expected %s, %s or %s)", c.storeKind, storeFile, storeSQLite, storeMemory)
	}
}

// newClient builds a client on store with the global flags applied. The
// unwrapped store is handed over so its atomic updates stay visible.
func (c *cli) newClient(store *openedStore, opts ...tapp.Option) *tapp.Client {
	all := []tapp.Option{tapp.WithStore(store.Store)}
	if c.baseURL != "" {
		all = append(all, tapp.WithBaseURL(c.baseURL))
	}
	return tapp.New(append(all, opts...)...)
}

// operation is the work behind a command. value is what --format json
// prints; details fill the result box.
type operation func(ctx context.Context, onStep ui.StepCallback) (value any, details map[string]string, err error)

// command describes how a command is presented.
type command struct {
	title           string
	path            string
	params          map[string]string
	steps           []string
	troubleshooting []string
}

// run executes op with the configured output format and API timeout.
func (c *cli) run(ctx context.Context, cmd command, op operation) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.format == formatJSON {
		value, _, err := op(ctx, func(int, string, ui.StepStatus, string) {})
		if err != nil {
			return err
		}
		return c.writeJSON(value)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:           cmd.title,
		Command:         cmd.path,
		Params:          cmd.params,
		StepNames:       cmd.steps,
		Troubleshooting: cmd.troubleshooting,
		Output:          c.out,
	})
	_, err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
		_, details, err := op(ctx, onStep)
		return details, err
	})
	return err
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// linkDetails renders link data for the result box.
func linkDetails(data *tapp.LinkData) map[string]string {
	details := map[string]string{
		"Tapp URL":       data.TappURL,
		"Attributed URL": data.AttributedTappURL,
		"Influencer":     data.Influencer,
		"First session":  fmt.Sprint(data.IsFirstSession),
	}
	for k, v := range data.Data {
		details["data."+k] = v
	}
	return details
}

var missingConfigTips = []string{
	"Run 'tappctl start' to bootstrap this install",
	"Check --store and --store-path point at the right configuration",
}
