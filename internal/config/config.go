package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Storage backends.
const (
	BackendAtomic = "atomic"
	BackendFile   = "file"
	BackendBolt   = "bolt"
)

// Merge resolvers.
const (
	ResolverMergeable = "mergeable"
	ResolverLWW       = "lww"
)

// Dir is the per-repository directory holding the config file and, by
// default, the stored resource.
const Dir = ".forked"

// Config represents forked configuration
type Config struct {
	Storage StorageConfig `json:"storage"`
	Merge   MergeConfig   `json:"merge"`
	Log     LogConfig     `json:"log"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Backend string `json:"backend,omitempty"`
	Path    string `json:"path,omitempty"`
}

// MergeConfig selects how conflicting forks are resolved
type MergeConfig struct {
	Resolver string `json:"resolver,omitempty"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `json:"level,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendBolt,
		},
		Merge: MergeConfig{
			Resolver: ResolverMergeable,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// StoragePath returns the configured storage path, or the backend's
// default location inside Dir.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	switch c.Storage.Backend {
	case BackendAtomic:
		return filepath.Join(Dir, "resource.json")
	case BackendFile:
		return filepath.Join(Dir, "commits")
	}
	return filepath.Join(Dir, "resource.db")
}

// SlogLevel parses the configured log level, defaulting to warn.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// globalConfigPath returns the path to the global config file
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".forkedconfig"), nil
}

// repoConfigPath returns the path to the repository config file
func repoConfigPath() string {
	return filepath.Join(Dir, "config")
}

// LoadConfig loads configuration from both global and repository config files
// Repository config takes precedence over global config
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if globalPath, err := globalConfigPath(); err == nil {
		if err := mergeFile(cfg, globalPath); err != nil {
			return nil, err
		}
	}
	if err := mergeFile(cfg, repoConfigPath()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile merges the config at path into cfg. A missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var src Config
	if err := json.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	mergeConfig(cfg, &src)
	return nil
}

// SaveGlobalConfig saves configuration to the global config file
func SaveGlobalConfig(cfg *Config) error {
	globalPath, err := globalConfigPath()
	if err != nil {
		return err
	}
	return writeConfig(globalPath, cfg)
}

// SaveRepoConfig saves configuration to the repository config file
func SaveRepoConfig(cfg *Config) error {
	repoPath := repoConfigPath()
	if err := os.MkdirAll(filepath.Dir(repoPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}
	return writeConfig(repoPath, cfg)
}

func writeConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// GetValue retrieves a configuration value by key (e.g., "storage.backend")
func GetValue(key string) (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	field, err := lookup(cfg, key)
	if err != nil {
		return "", err
	}
	return *field, nil
}

// SetValue sets a configuration value by key (e.g., "merge.resolver", "lww")
func SetValue(key, value string, global bool) error {
	path := repoConfigPath()
	if global {
		p, err := globalConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// only the file being written is loaded, so values inherited from the
	// other layer are not copied into it
	cfg := &Config{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	field, err := lookup(cfg, key)
	if err != nil {
		return err
	}
	if err := validate(key, value); err != nil {
		return err
	}
	*field = value

	if global {
		return SaveGlobalConfig(cfg)
	}
	return SaveRepoConfig(cfg)
}

// lookup returns a pointer to the field named by a section.key string.
func lookup(cfg *Config, key string) (*string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid config key: %s (expected format: section.key)", key)
	}

	section, field := parts[0], parts[1]
	switch section {
	case "storage":
		switch field {
		case "backend":
			return &cfg.Storage.Backend, nil
		case "path":
			return &cfg.Storage.Path, nil
		}
	case "merge":
		if field == "resolver" {
			return &cfg.Merge.Resolver, nil
		}
	case "log":
		if field == "level" {
			return &cfg.Log.Level, nil
		}
	default:
		return nil, fmt.Errorf("unknown config section: %s", section)
	}
	return nil, fmt.Errorf("unknown %s config field: %s", section, field)
}

func validate(key, value string) error {
	switch key {
	case "storage.backend":
		switch value {
		case BackendAtomic, BackendFile, BackendBolt:
			return nil
		}
		return fmt.Errorf("unknown storage backend %q (want %s, %s or %s)", value, BackendAtomic, BackendFile, BackendBolt)
	case "merge.resolver":
		switch value {
		case ResolverMergeable, ResolverLWW:
			return nil
		}
		return fmt.Errorf("unknown merge resolver %q (want %s or %s)", value, ResolverMergeable, ResolverLWW)
	case "log.level":
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", value, err)
		}
	}
	return nil
}

// mergeConfig merges source config into destination config
// Only non-empty values from source override destination
func mergeConfig(dst, src *Config) {
	if src.Storage.Backend != "" {
		dst.Storage.Backend = src.Storage.Backend
	}
	if src.Storage.Path != "" {
		dst.Storage.Path = src.Storage.Path
	}
	if src.Merge.Resolver != "" {
		dst.Merge.Resolver = src.Merge.Resolver
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
}
