package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no ticket board found (run 'ticketboard init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the board configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Board    BoardConfig    `yaml:"board"`
	Store    StoreConfig    `yaml:"store"`
	IDs      IDConfig       `yaml:"ids"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Log      LogConfig      `yaml:"log"`

	// dir is the absolute path to the board directory (not serialized).
	dir string `yaml:"-"`
}

// BoardConfig holds board metadata.
type BoardConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// StoreConfig selects the document store backend. Path is relative to the
// board directory unless absolute; it is ignored by the memory backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// IDConfig tunes ticket id allocation.
type IDConfig struct {
	Digits      int `yaml:"digits"`
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultsConfig holds create-form defaults.
type DefaultsConfig struct {
	Priority  string `yaml:"priority"`
	IssueType string `yaml:"issue_type"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Dir returns the absolute path to the board directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the board directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// StorePath returns the absolute location of the store data: a directory
// for the file backend, a database file for sqlite.
func (c *Config) StorePath() string {
	p := c.Store.Path
	if p == "" {
		switch c.Store.Backend {
		case BackendSQLite:
			p = DefaultSQLiteStorePath
		case BackendMemory:
			return ""
		default:
			p = DefaultFileStorePath
		}
	}
	return c.resolve(p)
}

// LogPath returns the absolute path of the log file.
func (c *Config) LogPath() string {
	if c.Log.File == "" {
		return c.resolve(DefaultLogFile)
	}
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	return &Config{
		Version: CurrentVersion,
		Board:   BoardConfig{Name: name},
		Store:   StoreConfig{Backend: BackendFile},
		IDs:     IDConfig{Digits: defaultIDDigits, MaxAttempts: defaultIDAttempts},
		Defaults: DefaultsConfig{
			Priority:  DefaultPriority,
			IssueType: DefaultIssueType,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

const (
	defaultIDDigits   = 5
	defaultIDAttempts = 100
)

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Board.Name == "" {
		return fmt.Errorf("%w: board.name is required", ErrInvalid)
	}
	if !slices.Contains(Backends, c.Store.Backend) {
		return fmt.Errorf("%w: store.backend %q must be one of %v", ErrInvalid, c.Store.Backend, Backends)
	}
	const maxDigits = 9
	if c.IDs.Digits < 1 || c.IDs.Digits > maxDigits {
		return fmt.Errorf("%w: ids.digits must be between 1 and %d", ErrInvalid, maxDigits)
	}
	if c.IDs.MaxAttempts < 1 {
		return fmt.Errorf("%w: ids.max_attempts must be >= 1", ErrInvalid)
	}
	if !ticket.Priority(c.Defaults.Priority).Valid() {
		return fmt.Errorf("%w: default priority %q not in %v", ErrInvalid, c.Defaults.Priority, ticket.Priorities)
	}
	if !ticket.IssueType(c.Defaults.IssueType).Valid() {
		return fmt.Errorf("%w: default issue type %q not in %v", ErrInvalid, c.Defaults.IssueType, ticket.IssueTypes)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return nil
}

// Init creates a new board in the given directory with default settings.
// It creates the board directory, the store location for the file backend,
// and the config file.
func Init(dir, name, backend string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)
	if backend != "" {
		cfg.Store.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating board directory: %w", err)
	}
	if cfg.Store.Backend == BackendFile {
		if err := os.MkdirAll(cfg.StorePath(), dirMode); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given board directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a board directory
// containing config.yml. Returns the absolute path to the board directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the board directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.BoardNotFound,
				"no ticket board found (run 'ticketboard init' to create one)")
		}
		dir = parent
	}
}
