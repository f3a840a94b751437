package config

import (
	"os"
	"path/filepath"

	"clip-analyzer/internal/domain"
)

// DefaultBackendTool is the analysis backend executable resolved on PATH
// when settings carry no explicit path.
const DefaultBackendTool = "clip-analysis-backend"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		BackendPath: DefaultBackendTool,
		MediaDir:    filepath.Join(homeDir, "Movies", "Clips"),
		ModelPath:   filepath.Join(homeDir, ".clip-analyzer", "models"),
		Language:    "auto",
	}
}
