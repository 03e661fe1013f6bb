package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLearning(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	return nil
}

func (c *Config) validateLearning() error {
	for role, thresholds := range map[string]RoleThresholds{
		"issuer":            c.Learning.Issuer,
		"contracting_party": c.Learning.ContractingParty,
		"recipient":         c.Learning.Recipient,
	} {
		if thresholds.MinLeaderShare > 1 {
			return fmt.Errorf("learning.%s.min_leader_share must be at most 1, got %v", role, thresholds.MinLeaderShare)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
