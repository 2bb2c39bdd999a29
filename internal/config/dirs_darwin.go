//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

func appConfigDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", appDirName)
	}
	return appDirName
}

func appDataDir() string {
	return appConfigDir()
}
