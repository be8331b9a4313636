package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.zaptui/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	ChatLimit      int    `toml:"chat_limit"`    // max conversations shown in the list
	HistoryLimit   int    `toml:"history_limit"` // messages loaded when opening a chat
	MediaDir       string `toml:"media_dir"`     // save directory for downloaded media
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		ChatLimit:      40,
		HistoryLimit:   20,
		MediaDir:       ".",
	}
}

// Load reads config from the given path and fills unset fields with
// defaults. Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to the built-in
// defaults when the file does not exist.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.DefaultSession == "" {
		c.DefaultSession = d.DefaultSession
	}
	if c.ChatLimit <= 0 {
		c.ChatLimit = d.ChatLimit
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.MediaDir == "" {
		c.MediaDir = d.MediaDir
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
