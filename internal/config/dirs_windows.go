//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func appConfigDir() string {
	for _, env := range []string{"APPDATA", "LOCALAPPDATA"} {
		if dir := os.Getenv(env); dir != "" {
			return filepath.Join(dir, appDirName)
		}
	}
	return appDirName
}

func appDataDir() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return appConfigDir()
}
