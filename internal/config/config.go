// Package config provides TOML configuration file loading and parsing for the
// remote mouse host. The configuration file lives at ~/.remotemouse/config.toml
// by default, but can be overridden with the --config flag. CLI flags always
// take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultPreferredPort is the first port tried when starting the control server.
const DefaultPreferredPort = 8000

// DefaultSensitivity is the pointer movement multiplier applied to move deltas.
const DefaultSensitivity = 1.0

// Config represents the host configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// PreferredPort is the first port tried by the free-port scan.
	// Default: 8000
	PreferredPort int `toml:"preferred_port"`

	// AutoStart tells front-ends to start the control server on launch.
	// The supervisor itself never acts on this; it is carried for the UI.
	// Default: false
	AutoStart bool `toml:"auto_start"`

	// Sensitivity is the multiplier applied to relative pointer moves.
	// Default: 1.0
	Sensitivity float64 `toml:"sensitivity"`

	// EnableLogging controls whether pointer actions are logged by the
	// control server. Default: true
	EnableLogging bool `toml:"enable_logging"`

	// StateDB is the path to the SQLite database holding the server handle
	// and the session audit log. Default: ~/.remotemouse/remotemouse.db
	StateDB string `toml:"state_db"`

	// LogFile is the path the detached control server logs to.
	// Default: ~/.remotemouse/server.log
	LogFile string `toml:"log_file"`

	// MdnsEnabled enables mDNS/Bonjour service advertisement.
	// When true, the control server advertises itself on the local network,
	// allowing the mobile app to discover it without scanning a QR code.
	// Default: false (disabled - must be explicitly enabled)
	MdnsEnabled bool `toml:"mdns_enabled"`
}

// DefaultConfigPath returns the default config file location:
// ~/.remotemouse/config.toml. Returns an error only if the user's home
// directory cannot be determined.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".remotemouse", "config.toml"), nil
}

// DefaultStateDBPath returns the default SQLite database location:
// ~/.remotemouse/remotemouse.db.
func DefaultStateDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".remotemouse", "remotemouse.db"), nil
}

// DefaultLogFilePath returns the default control-server log location:
// ~/.remotemouse/server.log.
func DefaultLogFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".remotemouse", "server.log"), nil
}

// Load reads a TOML config file from the given path and returns a Config.
//
// Behavior:
//   - If path is empty, attempts to load from the default location
//     (~/.remotemouse/config.toml). Returns a default Config without error
//     if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed.
func Load(path string) (*Config, error) {
	cfg := &Config{
		PreferredPort: DefaultPreferredPort,
		Sensitivity:   DefaultSensitivity,
		EnableLogging: true,
	}

	if path == "" {
		// No explicit path: try default location, but don't error if missing.
		// This allows the host to start without any config file.
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			// Can't determine home dir, return defaults
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			// Default config doesn't exist, that's fine
			return cfg, nil
		}
		path = defaultPath
	} else {
		// Explicit path provided: error if file doesn't exist.
		// This matches user expectation: if they specify a config file, it should exist.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	// Parse the TOML file. Any parse error is fatal since the user expects
	// the config to be applied.
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.PreferredPort <= 0 {
		cfg.PreferredPort = DefaultPreferredPort
	}
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = DefaultSensitivity
	}

	return cfg, nil
}

// Save writes the config back to the given path as TOML.
// Creates the parent directory if it doesn't exist. Used by front-ends to
// persist settings edits; the supervisor only reads.
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
