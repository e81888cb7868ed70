package config

import (
	"fmt"
	"time"

	"github.com/recallmem/recall/internal/engine"
)

// Config holds all recall configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Engine     EngineConfig     `koanf:"engine"`
	Compaction CompactionConfig `koanf:"compaction"`
	Hooks      HooksConfig      `koanf:"hooks"`
}

type ServerConfig struct {
	Bind string `koanf:"bind" validate:"required"`
	Port int    `koanf:"port" validate:"gte=1,lte=65535"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"` // empty = resolved at runtime via store.DefaultDBPath()
}

type EngineConfig struct {
	// Confidence below which preference candidates are rejected.
	Confidence float64 `koanf:"confidence" validate:"gte=0,lte=1"`
	// Default number of retrieval results.
	Limit int `koanf:"limit" validate:"gte=1,lte=100"`

	// Scoring constants. All multiplicative boosts must stay >= 1 so
	// every factor keeps its documented direction.
	HalfLifeDays          float64 `koanf:"halflife" validate:"gt=0"`
	KnowledgeHalfLifeDays float64 `koanf:"knowledgehalflife" validate:"gt=0"`
	ProjectBoost          float64 `koanf:"projectboost" validate:"gte=1"`
	FileBoost             float64 `koanf:"fileboost" validate:"gte=1"`
	KeywordBoost          float64 `koanf:"keywordboost" validate:"gte=1"`
	RecencyBoost          float64 `koanf:"recencyboost" validate:"gte=1"`
}

type CompactionConfig struct {
	MaxBytes            int64 `koanf:"maxbytes" validate:"gt=0"`
	MaxRecords          int   `koanf:"maxrecords" validate:"gt=0"`
	ToolUseRetention    int   `koanf:"tooluseretention" validate:"gt=0"`
	CorrectionRetention int   `koanf:"correctionretention" validate:"gt=0"`
}

type HooksConfig struct {
	// Enforce controls the guard hook: block file writes without a recent
	// memory search, warn only, or disable enforcement.
	Enforce string `koanf:"enforce" validate:"oneof=block warn off"`
	// SearchTTLSeconds is how long a search stays fresh for the guard.
	SearchTTLSeconds int `koanf:"searchttl" validate:"gt=0"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	scores := engine.DefaultScoreConfig()
	limits := engine.DefaultCompactionLimits()
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37707,
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Engine: EngineConfig{
			Confidence:            0.5,
			Limit:                 5,
			HalfLifeDays:          scores.HalfLifeDays,
			KnowledgeHalfLifeDays: scores.KnowledgeHalfLifeDays,
			ProjectBoost:          scores.ProjectBoost,
			FileBoost:             scores.FileBoost,
			KeywordBoost:          scores.KeywordBoost,
			RecencyBoost:          scores.RecencyBoost,
		},
		Compaction: CompactionConfig{
			MaxBytes:            limits.MaxBytes,
			MaxRecords:          limits.MaxRecords,
			ToolUseRetention:    limits.ToolUseRetention,
			CorrectionRetention: limits.CorrectionRetention,
		},
		Hooks: HooksConfig{
			Enforce:          "warn",
			SearchTTLSeconds: 300,
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// SearchTTL returns the guard search TTL as a duration.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.Hooks.SearchTTLSeconds) * time.Second
}

// EngineOptions maps the config onto engine tunables.
func (c *Config) EngineOptions() engine.Options {
	scores := engine.DefaultScoreConfig()
	scores.HalfLifeDays = c.Engine.HalfLifeDays
	scores.KnowledgeHalfLifeDays = c.Engine.KnowledgeHalfLifeDays
	scores.ProjectBoost = c.Engine.ProjectBoost
	scores.FileBoost = c.Engine.FileBoost
	scores.KeywordBoost = c.Engine.KeywordBoost
	scores.RecencyBoost = c.Engine.RecencyBoost

	return engine.Options{
		ConfidenceThreshold: c.Engine.Confidence,
		RetrieveLimit:       c.Engine.Limit,
		Scores:              scores,
		Compaction: engine.CompactionLimits{
			MaxBytes:            c.Compaction.MaxBytes,
			MaxRecords:          c.Compaction.MaxRecords,
			ToolUseRetention:    c.Compaction.ToolUseRetention,
			CorrectionRetention: c.Compaction.CorrectionRetention,
		},
	}
}
