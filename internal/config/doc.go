// Package config holds the persisted configuration record of a tapp install
// and the stores that keep it.
//
// A Configuration carries the install's identity (auth token, tapp token,
// app token from the secret exchange, bundle id, environment, affiliate), its
// verification state and the cached origin link. The four origin link fields
// form a group: Origin reports the link only when every field is set.
//
// # Stores
//
//   - MemoryStore: in-process, counts saves
//   - FileStore: YAML file under the user config directory
//   - SQLiteStore: one row in a SQLite key-value table
//
// The default file location follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/tapp/config.yaml or $HOME/.config/tapp/config.yaml
//   - macOS: $HOME/.config/tapp/config.yaml
//   - Windows: %LOCALAPPDATA%\tapp\config.yaml
//
// # Usage Example
//
//	store, err := config.NewFileStore("")
//	if err != nil {
//	    return err
//	}
//	cfg, err := config.Update(store, func(c *config.Configuration) {
//	    c.IsAlreadyVerified = true
//	})
package config
