package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recall/internal/config"
)

func TestDefaultThresholds(t *testing.T) {
	cfg := config.Default()
	if cfg.Learning.ConflictMargin != 2 {
		t.Fatalf("ConflictMargin = %d, want 2", cfg.Learning.ConflictMargin)
	}
	if cfg.Learning.Recipient.MinLeaderShare != 0.70 {
		t.Fatalf("Recipient.MinLeaderShare = %v, want 0.70", cfg.Learning.Recipient.MinLeaderShare)
	}
	if cfg.Learning.Issuer.MinOccurrences != 2 {
		t.Fatalf("Issuer.MinOccurrences = %d, want 2", cfg.Learning.Issuer.MinOccurrences)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Learning.MaxDetailLines != 40 {
		t.Fatalf("MaxDetailLines = %d, want default 40", cfg.Learning.MaxDetailLines)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		"[learning]",
		"conflict_margin = 3",
		"[learning.recipient]",
		"min_occurrences = 4",
		"min_leader_share = 0.9",
		"[logging]",
		`level = "DEBUG"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Learning.ConflictMargin != 3 {
		t.Fatalf("ConflictMargin = %d, want 3", cfg.Learning.ConflictMargin)
	}
	if cfg.Learning.Recipient.MinOccurrences != 4 {
		t.Fatalf("Recipient.MinOccurrences = %d, want 4", cfg.Learning.Recipient.MinOccurrences)
	}
	// Unset sections keep defaults.
	if cfg.Learning.Issuer.MinLeaderShare != 0.65 {
		t.Fatalf("Issuer.MinLeaderShare = %v, want 0.65", cfg.Learning.Issuer.MinLeaderShare)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "memory.db") {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}

	if err := os.WriteFile(path, []byte("[learning.issuer]\nmin_leader_share = 1.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for share above 1")
	}
}
