package config

import (
	"path/filepath"
)

const appDirName = "DataConfessional"

// Settings are the application-level options, kept apart from the engine
// document so that editing one never rewrites the other.
type Settings struct {
	Server  ServerSettings
	Log     LogSettings
	Storage StorageSettings
	Engine  EngineSettings
}

type ServerSettings struct {
	Port int
}

type LogSettings struct {
	Level string
}

type StorageSettings struct {
	DataDir string
	// RetentionDays bounds interaction history age; 0 keeps everything.
	RetentionDays int
}

type EngineSettings struct {
	// ConfigPath overrides the engine document location; empty means default.
	ConfigPath string
}

func defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Port: 4317,
		},
		Log: LogSettings{
			Level: "info",
		},
		Storage: StorageSettings{
			DataDir:       appDataDir(),
			RetentionDays: 90,
		},
	}
}

// Load reads settings from the settings file and applies CONFESSIONAL_*
// environment overrides.
//
// The settings file lives at <user config dir>/DataConfessional/settings.json.
func Load() (Settings, error) {
	return loadWith(newFileBackend(settingsFilePath()))
}

func loadWith(b ConfigBackend) (Settings, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Settings{}, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// EngineConfigPath returns the engine document path these settings select.
func (s Settings) EngineConfigPath() string {
	if s.Engine.ConfigPath != "" {
		return s.Engine.ConfigPath
	}
	return DefaultEngineConfigPath()
}

// SecretsDir is where the encrypted credential fallback keeps its files.
func (s Settings) SecretsDir() string {
	return filepath.Join(s.Storage.DataDir, "secrets")
}

// SettingsPath returns the location of the settings file.
func SettingsPath() string {
	return settingsFilePath()
}

func settingsFilePath() string {
	return filepath.Join(appConfigDir(), "settings.json")
}
