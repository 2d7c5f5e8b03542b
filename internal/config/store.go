package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"github.com/NicabarNimble/submod/internal/errors"
)

// DefaultConfigFile is used when --config is not given
const DefaultConfigFile = "submod.toml"

// lockTimeout is the maximum time to wait for the config file lock
const lockTimeout = 5 * time.Second

// fileEntry is the TOML shape of a submodule table. Active is a pointer so
// that a missing key can default to true.
type fileEntry struct {
	Path         string       `toml:"path,omitempty"`
	URL          string       `toml:"url,omitempty"`
	Branch       Branch       `toml:"branch,omitempty"`
	Ignore       Ignore       `toml:"ignore,omitempty"`
	Update       Update       `toml:"update,omitempty"`
	FetchRecurse FetchRecurse `toml:"fetchRecurse,omitempty"`
	Active       *bool        `toml:"active"`
	Shallow      bool         `toml:"shallow"`
	SparsePaths  []string     `toml:"sparse_paths,omitempty"`
}

// Parse decodes TOML content into a Configuration
func Parse(data []byte) (*Configuration, error) {
	var tables map[string]fileEntry
	if err := toml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", errors.ErrInvalidConfig, err)
	}

	cfg := NewConfiguration()
	for name, fe := range tables {
		if name == DefaultsTable {
			cfg.Defaults = Defaults{
				Ignore:       fe.Ignore,
				Update:       fe.Update,
				Branch:       fe.Branch,
				FetchRecurse: fe.FetchRecurse,
			}
			continue
		}
		active := true
		if fe.Active != nil {
			active = *fe.Active
		}
		cfg.Submodules[name] = &SubmoduleEntry{
			Name:         name,
			Path:         fe.Path,
			URL:          fe.URL,
			Branch:       fe.Branch,
			Ignore:       fe.Ignore,
			Update:       fe.Update,
			FetchRecurse: fe.FetchRecurse,
			Active:       active,
			Shallow:      fe.Shallow,
			SparsePaths:  fe.SparsePaths,
		}
	}
	return cfg, nil
}

// Marshal encodes a Configuration as TOML
func Marshal(cfg *Configuration) ([]byte, error) {
	doc := make(map[string]any, len(cfg.Submodules)+1)
	doc[DefaultsTable] = cfg.persistedDefaults()
	for name, e := range cfg.Submodules {
		active := e.Active
		doc[name] = fileEntry{
			Path:         e.Path,
			URL:          e.URL,
			Branch:       e.Branch,
			Ignore:       e.Ignore,
			Update:       e.Update,
			FetchRecurse: e.FetchRecurse,
			Active:       &active,
			Shallow:      e.Shallow,
			SparsePaths:  e.SparsePaths,
		}
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// LoadConfig loads configuration from a file. A missing file yields an
// empty configuration. Non-empty override fields replace the file's
// defaults, so the precedence is built-in, then file, then overrides.
// Overrides only affect the loaded value; saving the configuration writes
// the file's own defaults back.
func LoadConfig(path string, overrides Defaults) (*Configuration, error) {
	cfg := NewConfiguration()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if overrides == (Defaults{}) {
		return cfg, nil
	}
	file := cfg.Defaults
	if err := mergo.Merge(&cfg.Defaults, overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge default overrides: %w", err)
	}
	cfg.fileDefaults = &file
	return cfg, nil
}

// SaveConfig saves configuration to a file atomically
func SaveConfig(cfg *Configuration, path string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AtomicWriteFile writes data to a temporary file in the target directory
// and renames it over path, so readers never see a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Store owns the configuration file of one invocation
type Store struct {
	path      string
	overrides Defaults
}

// NewStore creates a store for path. Overrides are applied on every Load.
func NewStore(path string, overrides Defaults) *Store {
	if path == "" {
		path = DefaultConfigFile
	}
	return &Store{path: path, overrides: overrides}
}

// Path returns the config file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration
func (s *Store) Load() (*Configuration, error) {
	return LoadConfig(s.path, s.overrides)
}

// Save writes the configuration
func (s *Store) Save(cfg *Configuration) error {
	return SaveConfig(cfg, s.path)
}

// Lock acquires an exclusive lock on a sibling ".lock" file, guarding the
// read-modify-write cycle against concurrent invocations.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	fileLock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", s.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock on %s: timeout after %v", s.path, lockTimeout)
	}
	return fileLock.Unlock, nil
}

// Update performs a locked load, modify and save
func (s *Store) Update(ctx context.Context, fn func(*Configuration) error) error {
	unlock, err := s.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := s.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
