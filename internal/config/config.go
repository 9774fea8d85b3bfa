package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/vivah/internal/chat"
	"go.uber.org/zap/zapcore"
)

// Duration is a time.Duration written as a string such as "4s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents ~/.vivah/config.toml.
type Config struct {
	// DataDir holds the database, socket, lock and logs. Empty means
	// <base>/data.
	DataDir string `toml:"data_dir"`
	// ViewerID is the default identity for the CLI and TUI.
	ViewerID string `toml:"viewer_id"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel            string   `toml:"log_level"`
	PollInterval        Duration `toml:"poll_interval"`
	HistoryLimit        int      `toml:"history_limit"`
	PreviewLength       int      `toml:"preview_length"`
	PlaceholderName     string   `toml:"placeholder_name"`
	PlaceholderPhotoURL string   `toml:"placeholder_photo_url"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:            "info",
		PollInterval:        Duration{chat.DefaultPollInterval},
		HistoryLimit:        chat.DefaultHistoryLimit,
		PreviewLength:       chat.DefaultPreviewLength,
		PlaceholderName:     chat.DefaultPlaceholderName,
		PlaceholderPhotoURL: chat.DefaultPlaceholderPhotoURL,
	}
}

// Load reads config from path over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the chat core cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.PollInterval.Duration <= 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	case c.HistoryLimit <= 0:
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	case c.PreviewLength <= 0:
		return fmt.Errorf("preview_length must be positive, got %d", c.PreviewLength)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Controller returns the chat controller settings.
func (c *Config) Controller() chat.ControllerConfig {
	return chat.ControllerConfig{
		PollInterval:        c.PollInterval.Duration,
		HistoryLimit:        c.HistoryLimit,
		PreviewLength:       c.PreviewLength,
		PlaceholderName:     c.PlaceholderName,
		PlaceholderPhotoURL: c.PlaceholderPhotoURL,
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
