package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{DefaultSession: "work", ChatLimit: 25, HistoryLimit: 50, MediaDir: "/tmp/media"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.ChatLimit != 25 || loaded.HistoryLimit != 50 {
		t.Errorf("limits = (%d, %d), want (25, 50)", loaded.ChatLimit, loaded.HistoryLimit)
	}
	if loaded.MediaDir != "/tmp/media" {
		t.Errorf("MediaDir = %q", loaded.MediaDir)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := os.WriteFile(path, []byte("default_session = \"work\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ChatLimit != 40 {
		t.Errorf("ChatLimit = %d, want default 40", loaded.ChatLimit)
	}
	if loaded.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d, want default 20", loaded.HistoryLimit)
	}
	if loaded.MediaDir != "." {
		t.Errorf("MediaDir = %q, want default .", loaded.MediaDir)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault("/nonexistent/config.toml")
	if cfg.DefaultSession != "main" || cfg.ChatLimit != 40 || cfg.HistoryLimit != 20 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
