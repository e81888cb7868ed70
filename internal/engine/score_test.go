package engine

import (
	"testing"
	"time"

	"github.com/recallmem/recall/internal/store"
)

func knowledgeRec(content string, ageDays float64, now time.Time) store.MemoryRecord {
	return store.MemoryRecord{
		Type:      store.RecordProjectKnowledge,
		Payload:   store.KnowledgePayload{Content: content},
		Scope:     store.Scope{ProjectID: "proj"},
		CreatedAt: now.Add(-time.Duration(ageDays*24) * time.Hour).UnixMilli(),
	}
}

func TestScoreDecayMonotonic(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()
	ctx := Context{}

	var prev float64
	for i, age := range []float64{0, 5, 30, 120} {
		s := Score(knowledgeRec("x", age, now), ctx, now, cfg)
		if i > 0 && s >= prev {
			t.Errorf("score at age %v = %v, not below younger score %v", age, s, prev)
		}
		prev = s
	}
}

func TestScoreHalfLife(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()

	// A knowledge record one half-life old scores half its fresh value.
	fresh := Score(knowledgeRec("x", 0, now), Context{}, now, cfg)
	aged := Score(knowledgeRec("x", cfg.KnowledgeHalfLifeDays, now), Context{}, now, cfg)

	if ratio := aged / fresh; ratio < 0.49 || ratio > 0.51 {
		t.Errorf("half-life ratio = %v, want ~0.5", ratio)
	}
}

func TestScoreActivePreferenceExemptFromDecay(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()

	pref := store.MemoryRecord{
		Type:          store.RecordPreference,
		Payload:       store.PreferencePayload{Key: "indent_style", Value: "tabs"},
		Scope:         store.Scope{ProjectID: "proj"},
		CreatedAt:     now.Add(-365 * 24 * time.Hour).UnixMilli(),
		PreferenceKey: "indent_style",
		IsActive:      true,
	}

	old := Score(pref, Context{}, now, cfg)
	pref.CreatedAt = now.UnixMilli()
	young := Score(pref, Context{}, now, cfg)

	if old != young {
		t.Errorf("active preference decayed: year-old %v vs fresh %v", old, young)
	}

	// Superseded preferences do decay.
	pref.IsActive = false
	pref.CreatedAt = now.Add(-365 * 24 * time.Hour).UnixMilli()
	if s := Score(pref, Context{}, now, cfg); s >= young {
		t.Errorf("inactive preference not decaying: %v", s)
	}
}

func TestScoreKeywordBoostPerDistinctMatch(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()
	rec := knowledgeRec("docker compose needs the buildkit flag", 0, now)

	base := Score(rec, Context{}, now, cfg)
	one := Score(rec, Context{Keywords: []string{"docker"}}, now, cfg)
	two := Score(rec, Context{Keywords: []string{"docker", "buildkit"}}, now, cfg)
	missAndHit := Score(rec, Context{Keywords: []string{"docker", "docker", "kubernetes"}}, now, cfg)

	if one != base*cfg.KeywordBoost {
		t.Errorf("one match = %v, want %v", one, base*cfg.KeywordBoost)
	}
	if two != base*cfg.KeywordBoost*cfg.KeywordBoost {
		t.Errorf("two matches = %v, want %v", two, base*cfg.KeywordBoost*cfg.KeywordBoost)
	}
	// Duplicate keywords in the query count once; misses count zero.
	if missAndHit != one {
		t.Errorf("duplicate+miss = %v, want %v", missAndHit, one)
	}
}

func TestScoreScopeBoostsStack(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()
	rec := knowledgeRec("x", 0, now)
	rec.Scope.FilePath = "internal/store/db.go"

	base := Score(rec, Context{}, now, cfg)
	project := Score(rec, Context{ProjectID: "proj"}, now, cfg)
	both := Score(rec, Context{ProjectID: "proj", FilePath: "internal/store/db.go"}, now, cfg)
	otherProject := Score(rec, Context{ProjectID: "elsewhere"}, now, cfg)

	if project != base*cfg.ProjectBoost {
		t.Errorf("project boost = %v, want %v", project, base*cfg.ProjectBoost)
	}
	if both != base*cfg.ProjectBoost*cfg.FileBoost {
		t.Errorf("stacked boost = %v, want %v", both, base*cfg.ProjectBoost*cfg.FileBoost)
	}
	if otherProject != base {
		t.Errorf("mismatched project changed score: %v vs %v", otherProject, base)
	}
}

func TestScoreFrequencyCapped(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()

	rec := knowledgeRec("x", 0, now)
	base := Score(rec, Context{}, now, cfg)

	rec.AccessCount = 1000000
	boosted := Score(rec, Context{}, now, cfg)

	if boosted > base*cfg.MaxFrequencyFactor {
		t.Errorf("frequency factor exceeded cap: %v > %v", boosted, base*cfg.MaxFrequencyFactor)
	}
}

func TestScoreRecencyWindow(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()

	rec := knowledgeRec("x", 0, now)
	base := Score(rec, Context{}, now, cfg)

	recent := now.Add(-time.Hour).UnixMilli()
	rec.LastAccess = &recent
	rec.AccessCount = 0
	if s := Score(rec, Context{}, now, cfg); s != base*cfg.RecencyBoost {
		t.Errorf("recent access = %v, want %v", s, base*cfg.RecencyBoost)
	}

	stale := now.Add(-48 * time.Hour).UnixMilli()
	rec.LastAccess = &stale
	if s := Score(rec, Context{}, now, cfg); s != base {
		t.Errorf("stale access boosted: %v vs %v", s, base)
	}
}

func TestScoreBaselineByType(t *testing.T) {
	now := time.Now()
	cfg := DefaultScoreConfig()

	tool := store.MemoryRecord{
		Type:      store.RecordToolUse,
		Payload:   store.ToolUsePayload{Tool: "Bash"},
		CreatedAt: now.UnixMilli(),
	}
	knowledge := knowledgeRec("x", 0, now)

	if st, sk := Score(tool, Context{}, now, cfg), Score(knowledge, Context{}, now, cfg); st >= sk {
		t.Errorf("tool_use baseline %v not below knowledge baseline %v", st, sk)
	}
}
