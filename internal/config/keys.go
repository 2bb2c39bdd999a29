package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Settings, v any)
	extract func(cfg Settings) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CONFESSIONAL_SERVER_PORT",
		apply:   func(cfg *Settings, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Settings) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "CONFESSIONAL_LOG_LEVEL",
		apply:   func(cfg *Settings, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Settings) any { return cfg.Log.Level },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CONFESSIONAL_DATA_DIR",
		apply:   func(cfg *Settings, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Settings) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.retention_days", typ: kInt, env: "CONFESSIONAL_RETENTION_DAYS",
		apply:   func(cfg *Settings, v any) { cfg.Storage.RetentionDays = v.(int) },
		extract: func(cfg Settings) any { return cfg.Storage.RetentionDays },
	},
	{
		key: "engine.config_path", typ: kString, env: "CONFESSIONAL_ENGINE_CONFIG",
		apply:   func(cfg *Settings, v any) { cfg.Engine.ConfigPath = v.(string) },
		extract: func(cfg Settings) any { return cfg.Engine.ConfigPath },
	},
}

func applyBackend(cfg *Settings, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Settings) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("could not parse integer from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
