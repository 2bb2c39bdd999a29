package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const engineConfigFile = "engine-config.json"

// FileStore reads and writes the engine document at Path. It holds no
// cached copy: every Load reads the file again.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for path, or for the default per-user
// location when path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultEngineConfigPath()
	}
	return &FileStore{Path: path}
}

// DefaultEngineConfigPath is <user config dir>/DataConfessional/engine/engine-config.json.
func DefaultEngineConfigPath() string {
	return filepath.Join(appConfigDir(), "engine", engineConfigFile)
}

// Load returns the stored document. A missing file is a first run: the
// default document is written and returned.
func (s *FileStore) Load() (EngineConfig, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		cfg := DefaultEngineConfig()
		if err := s.Save(cfg); err != nil {
			return EngineConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return EngineConfig{}, fmt.Errorf("reading engine config %s: %w", s.Path, err)
	}

	var cfg EngineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("parsing engine config %s: %w", s.Path, err)
	}
	if cfg.Packs == nil {
		cfg.Packs = make(map[string]ModelPack)
	}
	return cfg, nil
}

// Save writes the document atomically with owner-only permissions.
func (s *FileStore) Save(cfg EngineConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding engine config: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating engine config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".engine-config-*.json")
	if err != nil {
		return fmt.Errorf("writing engine config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing engine config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing engine config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing engine config: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("writing engine config: %w", err)
	}
	return nil
}
