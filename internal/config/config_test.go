package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_ExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	Init()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "source: https://github.com/example/agents\nbranch: develop\nbackup:\n  retention: 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source != "https://github.com/example/agents" {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.Branch != "develop" {
		t.Errorf("Branch = %q, want develop", cfg.Branch)
	}
	if cfg.Backup.Retention != 3 {
		t.Errorf("Retention = %d, want 3", cfg.Backup.Retention)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	Init()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	Init()

	// Run from an empty directory so no config.yaml is picked up.
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Branch != DefaultBranch {
		t.Errorf("Branch = %q, want %q", cfg.Branch, DefaultBranch)
	}
	if cfg.Backup.Retention != DefaultRetention {
		t.Errorf("Retention = %d, want %d", cfg.Backup.Retention, DefaultRetention)
	}
	if cfg.Source != "" {
		t.Errorf("Source should default to empty, got %q", cfg.Source)
	}
}
