package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "RECALL_"
	// Delimiter is the key delimiter for nested config.
	Delimiter = "."
)

// Load reads configuration with the following priority, lowest first:
// defaults, config file (explicit path or a standard location), then
// RECALL_* environment variables (RECALL_SERVER_PORT -> server.port).
func Load(configPath string) (*Config, error) {
	k := koanf.New(Delimiter)

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		loadDefaultFiles(k)
	}

	if err := loadEnv(k); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDefaults loads defaults as flat delimited keys so later file and
// env loads merge per-key instead of replacing whole sections.
func loadDefaults(k *koanf.Koanf) error {
	d := Default()
	return k.Load(confmap.Provider(map[string]interface{}{
		"server.bind":                    d.Server.Bind,
		"server.port":                    d.Server.Port,
		"database.path":                  d.Database.Path,
		"engine.confidence":              d.Engine.Confidence,
		"engine.limit":                   d.Engine.Limit,
		"engine.halflife":                d.Engine.HalfLifeDays,
		"engine.knowledgehalflife":       d.Engine.KnowledgeHalfLifeDays,
		"engine.projectboost":            d.Engine.ProjectBoost,
		"engine.fileboost":               d.Engine.FileBoost,
		"engine.keywordboost":            d.Engine.KeywordBoost,
		"engine.recencyboost":            d.Engine.RecencyBoost,
		"compaction.maxbytes":            d.Compaction.MaxBytes,
		"compaction.maxrecords":          d.Compaction.MaxRecords,
		"compaction.tooluseretention":    d.Compaction.ToolUseRetention,
		"compaction.correctionretention": d.Compaction.CorrectionRetention,
		"hooks.enforce":                  d.Hooks.Enforce,
		"hooks.searchttl":                d.Hooks.SearchTTLSeconds,
	}, Delimiter), nil)
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", path)
	}

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	return k.Load(file.Provider(path), parser)
}

// loadDefaultFiles tries standard config locations, first hit wins.
func loadDefaultFiles(k *koanf.Koanf) {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".recall", "config.yaml"),
			filepath.Join(home, ".recall", "config.json"),
		)
	}
	candidates = append(candidates, "recall.yaml", "recall.json")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = loadFile(k, path)
			return
		}
	}
}

func loadEnv(k *koanf.Koanf) error {
	return k.Load(env.Provider(EnvPrefix, Delimiter, func(s string) string {
		// RECALL_SERVER_PORT -> server.port
		// RECALL_HOOKS_SEARCHTTL -> hooks.searchttl
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", Delimiter, -1)
	}), nil)
}
