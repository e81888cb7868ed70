package engine

import (
	"math"
	"strings"
	"time"

	"github.com/recallmem/recall/internal/store"
)

// Context is the retrieval-time context records are scored against.
type Context struct {
	ProjectID string
	FilePath  string
	SessionID string
	Keywords  []string
}

// ScoreConfig holds the scorer's tunable constants. The presence and
// direction of each factor is contract; the numbers are configuration.
type ScoreConfig struct {
	Baseline         float64 // base score for volatile records
	ElevatedBaseline float64 // base score for preferences and knowledge

	HalfLifeDays          float64 // decay half-life for volatile types
	KnowledgeHalfLifeDays float64 // decay half-life for project knowledge

	ProjectBoost float64 // scope match on projectId
	FileBoost    float64 // scope match on filePath, stacks with ProjectBoost
	KeywordBoost float64 // per distinct matched query keyword
	RecencyBoost float64 // lastAccessedAt within RecencyWindow of now

	RecencyWindow      time.Duration
	MaxFrequencyFactor float64 // cap on the access-frequency multiplier
}

// DefaultScoreConfig returns the scorer defaults.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Baseline:              1.0,
		ElevatedBaseline:      1.5,
		HalfLifeDays:          7,
		KnowledgeHalfLifeDays: 30,
		ProjectBoost:          1.5,
		FileBoost:             2.0,
		KeywordBoost:          2.0,
		RecencyBoost:          1.2,
		RecencyWindow:         24 * time.Hour,
		MaxFrequencyFactor:    2.0,
	}
}

// Score maps (record, context, now) to a relevance score. Pure function:
// no store access, no side effects.
//
// Boosts apply in a fixed order — keyword match, scope, temporal decay,
// then frequency and recency — all multiplicative on the type baseline.
func Score(rec store.MemoryRecord, ctx Context, now time.Time, cfg ScoreConfig) float64 {
	score := cfg.Baseline
	if rec.Type == store.RecordPreference || rec.Type == store.RecordProjectKnowledge {
		score = cfg.ElevatedBaseline
	}

	// Keyword match: per distinct query keyword found in the payload text.
	if n := matchedKeywords(rec, ctx.Keywords); n > 0 {
		score *= math.Pow(cfg.KeywordBoost, float64(n))
	}

	// Scope: project match, then file match stacking on top.
	if ctx.ProjectID != "" && rec.Scope.ProjectID == ctx.ProjectID {
		score *= cfg.ProjectBoost
	}
	if ctx.FilePath != "" && rec.Scope.FilePath == ctx.FilePath {
		score *= cfg.FileBoost
	}

	// Temporal decay. Active preferences are exempt: supersession, not
	// aging, is their retirement mechanism.
	if !(rec.Type == store.RecordPreference && rec.IsActive) {
		halfLife := cfg.HalfLifeDays
		if rec.Type == store.RecordProjectKnowledge || rec.Type == store.RecordPreference {
			halfLife = cfg.KnowledgeHalfLifeDays
		}
		ageDays := now.Sub(time.UnixMilli(rec.CreatedAt)).Hours() / 24
		if ageDays > 0 && halfLife > 0 {
			score *= math.Pow(0.5, ageDays/halfLife)
		}
	}

	// Frequency: log(1+accessCount), scaled into [1, MaxFrequencyFactor]
	// so heavily-accessed records can't dominate outright.
	if rec.AccessCount > 0 {
		factor := 1.0 + math.Log1p(float64(rec.AccessCount))/4
		if factor > cfg.MaxFrequencyFactor {
			factor = cfg.MaxFrequencyFactor
		}
		score *= factor
	}

	// Recency of access.
	if rec.LastAccess != nil {
		since := now.Sub(time.UnixMilli(*rec.LastAccess))
		if since >= 0 && since <= cfg.RecencyWindow {
			score *= cfg.RecencyBoost
		}
	}

	return score
}

// matchedKeywords counts the distinct keywords present in the record's
// payload text, case-insensitively.
func matchedKeywords(rec store.MemoryRecord, keywords []string) int {
	if len(keywords) == 0 || rec.Payload == nil {
		return 0
	}
	text := strings.ToLower(rec.Payload.SearchText())
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}
