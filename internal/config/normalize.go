package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLearning()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLearning() {
	if c.Learning.ConflictMargin <= 0 {
		c.Learning.ConflictMargin = defaultConflictMargin
	}
	if c.Learning.MaxDetailLines <= 0 {
		c.Learning.MaxDetailLines = defaultMaxDetailLines
	}
	normalizeThresholds(&c.Learning.Issuer, defaultMinLeaderShare)
	normalizeThresholds(&c.Learning.ContractingParty, defaultMinLeaderShare)
	normalizeThresholds(&c.Learning.Recipient, defaultRecipientLeaderShare)
}

func normalizeThresholds(t *RoleThresholds, defaultShare float64) {
	if t.MinOccurrences <= 0 {
		t.MinOccurrences = defaultMinOccurrences
	}
	if t.MinLeaderShare <= 0 {
		t.MinLeaderShare = defaultShare
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
