package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.ViewerID = "u1"
	cfg.PollInterval = Duration{2 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ViewerID != "u1" {
		t.Errorf("ViewerID = %q, want %q", loaded.ViewerID, "u1")
	}
	if loaded.PollInterval.Duration != 2*time.Second {
		t.Errorf("PollInterval = %s, want 2s", loaded.PollInterval)
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PollInterval.Duration != 4*time.Second {
		t.Errorf("PollInterval = %s, want 4s", cfg.PollInterval)
	}
	if cfg.HistoryLimit != 50 || cfg.PreviewLength != 100 {
		t.Errorf("limits = %d/%d, want 50/100", cfg.HistoryLimit, cfg.PreviewLength)
	}
	if cfg.PlaceholderName != "Member" {
		t.Errorf("PlaceholderName = %q, want Member", cfg.PlaceholderName)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("viewer_id = \"u7\"\npoll_interval = \"500ms\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ViewerID != "u7" || cfg.PollInterval.Duration != 500*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want default 50", cfg.HistoryLimit)
	}
	if got := cfg.Controller(); got.PollInterval != 500*time.Millisecond || got.PlaceholderName != "Member" {
		t.Errorf("Controller() = %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", `poll_interval = "soon"`},
		{"zero poll", `poll_interval = "0s"`},
		{"negative limit", `history_limit = -1`},
		{"zero preview", `preview_length = 0`},
		{"unknown log level", `log_level = "loud"`},
		{"not toml", `viewer_id = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content+"\n"), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
