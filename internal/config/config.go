package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// DatabaseFileName is the name of the SQLite file inside DataDir. The file
// is portable: copying it to another machine carries the whole memory.
const DatabaseFileName = "memory.db"

// Paths contains directory configuration.
type Paths struct {
	// DataDir holds the memory database and its lock file. It lives in the
	// user profile, outside the program installation folder, so the memory
	// survives reinstalls.
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// RoleThresholds are the anti-overfitting gates applied to name→document
// resolution for one role.
type RoleThresholds struct {
	// MinOccurrences is the minimum absolute occurrence count the leading
	// candidate must reach before it can be auto-filled.
	MinOccurrences int `toml:"min_occurrences"`
	// MinLeaderShare is the minimum fraction of the group's total votes the
	// leading candidate must hold (0..1).
	MinLeaderShare float64 `toml:"min_leader_share"`
}

// Learning contains the confidence rules of the resolver.
type Learning struct {
	// ConflictMargin is the minimum occurrence lead the top candidate needs
	// over the runner-up before it can win automatically.
	ConflictMargin int `toml:"conflict_margin"`
	// MaxDetailLines caps the human-readable detail list in an ingest
	// summary.
	MaxDetailLines int `toml:"max_detail_lines"`

	Issuer           RoleThresholds `toml:"issuer"`
	ContractingParty RoleThresholds `toml:"contracting_party"`
	Recipient        RoleThresholds `toml:"recipient"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for recall.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Learning Learning `toml:"learning"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recall/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return
// value is the resolved config path and the third reports whether a file
// existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// DatabasePath returns the full path of the memory database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, DatabaseFileName)
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Thresholds returns the configured gates for a role name, with a zero
// value for unknown roles so callers can skip threshold checks.
func (l Learning) Thresholds(role string) RoleThresholds {
	switch role {
	case "issuer":
		return l.Issuer
	case "contracting_party":
		return l.ContractingParty
	case "recipient":
		return l.Recipient
	}
	return RoleThresholds{}
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the sample configuration file to the specified
// location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
