package testsupport

import (
	"path/filepath"
	"testing"

	"recall/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithConflictMargin sets the resolver conflict margin on the test config.
func WithConflictMargin(margin int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Learning.ConflictMargin = margin
	}
}

// WithRoleThresholds overrides the thresholds of one role on the test config.
func WithRoleThresholds(role string, thresholds config.RoleThresholds) ConfigOption {
	return func(cfg *config.Config) {
		switch role {
		case "issuer":
			cfg.Learning.Issuer = thresholds
		case "contracting_party":
			cfg.Learning.ContractingParty = thresholds
		case "recipient":
			cfg.Learning.Recipient = thresholds
		}
	}
}
