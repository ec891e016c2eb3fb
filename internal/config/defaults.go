package config

import (
	"os"
	"path/filepath"

	"github.com/tlvu/thunderbird/internal/domain"
)

// DefaultSettings returns baseline service configuration for first start.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ListenAddr:         ":8095",
		BaseURL:            "http://localhost:8095",
		WorkRoot:           filepath.Join(homeDir, ".thunderbird", "work"),
		GenerateClimosPath: "generate_climos",
		NCInfoPath:         "ncinfo",
	}
}
