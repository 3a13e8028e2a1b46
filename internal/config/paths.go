package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/checkin/internal/constants"
	"github.com/mrz1836/checkin/internal/errors"
)

// GlobalConfigDir returns the path to the global checkin directory.
// This is typically ~/.checkin on Unix systems.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.CheckinHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// DefaultEnvFiles returns the dotenv files tried, in order, when no env file
// is given: .env in the working directory, then ~/.checkin/.env. Cron starts
// jobs in the home directory, so the second entry is the one a crontab
// usually relies on.
func DefaultEnvFiles() []string {
	files := []string{constants.DefaultEnvFileName}
	if dir, err := GlobalConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, constants.DefaultEnvFileName))
	}
	return files
}

// HistoryLogPath returns the rotating history log path, honoring an
// explicit override.
func HistoryLogPath(cfg *LoggingConfig) (string, error) {
	if cfg != nil && cfg.HistoryFile != "" {
		return cfg.HistoryFile, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get history log path: %w", err)
	}
	return filepath.Join(dir, constants.LogsDir, constants.HistoryLogFileName), nil
}
