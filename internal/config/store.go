package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tlvu/thunderbird/internal/domain"
)

// Store defines persistence operations for service settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path     string
	validate *validator.Validate
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		path:     path,
		validate: validator.New(),
	}
}

// Load reads settings from disk or returns defaults when missing.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, err
	}

	var cfg domain.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, err
	}

	return cfg, nil
}

// Save validates and writes settings as indented JSON, creating parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Normalize trims user-supplied paths and fills missing fields from defaults.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.WorkRoot = strings.TrimSpace(cfg.WorkRoot)
	cfg.GenerateClimosPath = strings.TrimSpace(cfg.GenerateClimosPath)
	cfg.NCInfoPath = strings.TrimSpace(cfg.NCInfoPath)

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = defaults.WorkRoot
	}
	if cfg.GenerateClimosPath == "" {
		cfg.GenerateClimosPath = defaults.GenerateClimosPath
	}
	if cfg.NCInfoPath == "" {
		cfg.NCInfoPath = defaults.NCInfoPath
	}

	return cfg
}
