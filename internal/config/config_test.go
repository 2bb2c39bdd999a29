package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapBackend is an in-memory ConfigBackend.
type mapBackend struct {
	data map[string]any
}

func newMapBackend() *mapBackend { return &mapBackend{data: make(map[string]any)} }

func (m *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (m *mapBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m *mapBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *mapBackend) Delete(key string) error         { delete(m.data, key); return nil }

func TestDefaults(t *testing.T) {
	t.Setenv("CONFESSIONAL_SERVER_PORT", "")
	t.Setenv("CONFESSIONAL_LOG_LEVEL", "")
	t.Setenv("CONFESSIONAL_ENGINE_CONFIG", "")
	t.Setenv("CONFESSIONAL_RETENTION_DAYS", "")

	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4317 {
		t.Errorf("Server.Port = %d, want 4317", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if cfg.Storage.RetentionDays != 90 {
		t.Errorf("Storage.RetentionDays = %d, want 90", cfg.Storage.RetentionDays)
	}
	if cfg.EngineConfigPath() != DefaultEngineConfigPath() {
		t.Errorf("EngineConfigPath() = %q, want default", cfg.EngineConfigPath())
	}
}

func TestBackendValues(t *testing.T) {
	t.Setenv("CONFESSIONAL_SERVER_PORT", "")
	t.Setenv("CONFESSIONAL_ENGINE_CONFIG", "")

	b := newMapBackend()
	b.data["server.port"] = 5000
	b.data["engine.config_path"] = "/tmp/engine.json"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.EngineConfigPath() != "/tmp/engine.json" {
		t.Errorf("EngineConfigPath() = %q", cfg.EngineConfigPath())
	}
}

func TestEnvOverride(t *testing.T) {
	b := newMapBackend()
	b.data["log.level"] = "warn"
	t.Setenv("CONFESSIONAL_LOG_LEVEL", "debug")
	t.Setenv("CONFESSIONAL_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.Port != 4317 {
		t.Errorf("Server.Port = %d, want default after bad env value", cfg.Server.Port)
	}
}

func TestSetKey(t *testing.T) {
	b := newMapBackend()

	if err := setKeyWith(b, "server.port", "8080"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b.data["server.port"] != 8080 {
		t.Errorf("server.port = %v, want 8080", b.data["server.port"])
	}
	if err := setKeyWith(b, "server.port", "eighty"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "nope", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v, want unknown config key", err)
	}
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	b := newFileBackend(path)
	if err := b.SetInt("server.port", 9000); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	reloaded := newFileBackend(path)
	v, ok, err := reloaded.GetInt("server.port")
	if err != nil || !ok || v != 9000 {
		t.Errorf("GetInt = %d, %v, %v; want 9000, true, nil", v, ok, err)
	}
}

func TestFileStore_FirstRunWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine", "engine-config.json")
	s := NewFileStore(path)

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	id, pack, ok := cfg.ActivePack()
	if !ok || id != "analyst_fast" {
		t.Fatalf("ActivePack() = %q, %v; want analyst_fast", id, ok)
	}
	if pack.EmbeddingModel != "qwen3-embedding:4b" {
		t.Errorf("EmbeddingModel = %q", pack.EmbeddingModel)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestFileStore_ReadsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine-config.json")
	s := NewFileStore(path)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	edited := DefaultEngineConfig()
	light := "light_fast"
	edited.ActivePackID = &light
	data, _ := json.Marshal(edited)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id, _, _ := cfg.ActivePack(); id != "light_fast" {
		t.Errorf("active pack = %q, want light_fast", id)
	}
}

func TestFileStore_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine-config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil || !strings.Contains(err.Error(), "parsing engine config") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestFileStore_NullActivePack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine-config.json")
	doc := `{"provider":"ollama","base_url":"http://x","active_pack_id":null,"packs":{}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, ok := cfg.ActivePack(); ok {
		t.Error("ActivePack() ok = true, want false")
	}
}

func TestModelPack_Models(t *testing.T) {
	tests := []struct {
		name string
		pack ModelPack
		want []string
	}{
		{"distinct", ModelPack{AnalysisModel: "a", ReportModel: "b", EmbeddingModel: "c"}, []string{"a", "b", "c"}},
		{"shared analysis and report", ModelPack{AnalysisModel: "a", ReportModel: "a", EmbeddingModel: "c"}, []string{"a", "c"}},
		{"all same", ModelPack{AnalysisModel: "a", ReportModel: "a", EmbeddingModel: "a"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pack.Models()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Models() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	if err := DefaultEngineConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	missing := "ghost"
	cfg := EngineConfig{
		ActivePackID: &missing,
		Packs: map[string]ModelPack{
			"p": {AnalysisModel: "a", ReportModel: "", EmbeddingModel: "c"},
		},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"base_url is empty", `"ghost"`, `pack "p"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}
