package engine

import (
	"testing"
	"time"

	"github.com/recallmem/recall/internal/store"
)

func putToolUse(t *testing.T, e *Engine, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.DB.Put(&store.MemoryRecord{
			Type:      store.RecordToolUse,
			Payload:   store.ToolUsePayload{Tool: "Bash", InputSummary: "run"},
			Scope:     store.Scope{ProjectID: "proj"},
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond).UnixMilli(),
		})
		if err != nil {
			t.Fatalf("put tool use %d: %v", i, err)
		}
	}
}

func TestShouldCompactRecordThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.Compaction.MaxRecords = 10
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	e := New(db, opts)

	due, err := e.ShouldCompact()
	if err != nil {
		t.Fatalf("ShouldCompact: %v", err)
	}
	if due {
		t.Error("empty store reported as due")
	}

	putToolUse(t, e, 11, time.Now())
	due, err = e.ShouldCompact()
	if err != nil {
		t.Fatalf("ShouldCompact: %v", err)
	}
	if !due {
		t.Error("store over record cap not reported as due")
	}
}

// Retention pruning keeps exactly the newest records of volatile types
// and never touches preferences or knowledge.
func TestCompactRetention(t *testing.T) {
	opts := DefaultOptions()
	opts.Compaction.ToolUseRetention = 1000
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	e := New(db, opts)

	base := time.Now().Add(-time.Hour)
	putToolUse(t, e, 1100, base)

	if _, err := e.ProcessCandidate(candidate("indent_style", "tabs", 0.8),
		store.Scope{ProjectID: "proj"}, time.Now()); err != nil {
		t.Fatalf("candidate: %v", err)
	}
	putKnowledge(t, e, "proj", "deploy", "staged rollouts", time.Now())

	stats, err := e.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if stats.Removed != 100 {
		t.Errorf("Removed = %d, want 100", stats.Removed)
	}

	toolCount, _ := e.DB.CountByType(store.RecordToolUse)
	if toolCount != 1000 {
		t.Errorf("tool_use count = %d, want 1000", toolCount)
	}

	// The oldest 100 are the ones that went.
	survivors, _ := e.DB.RecentRecords("proj", []store.RecordType{store.RecordToolUse}, 1100)
	cutoff := base.Add(100 * time.Millisecond).UnixMilli()
	for _, rec := range survivors {
		if rec.CreatedAt < cutoff {
			t.Errorf("old record survived: %d < %d", rec.CreatedAt, cutoff)
			break
		}
	}

	prefCount, _ := e.DB.CountByType(store.RecordPreference)
	knowCount, _ := e.DB.CountByType(store.RecordProjectKnowledge)
	if prefCount != 1 || knowCount != 1 {
		t.Errorf("preference/knowledge touched: %d, %d", prefCount, knowCount)
	}
}

func TestCompactDedup(t *testing.T) {
	e := testEngine(t)
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := e.DB.Put(&store.MemoryRecord{
			Type:        store.RecordProjectKnowledge,
			Payload:     store.KnowledgePayload{Topic: "build", Content: "make test"},
			Scope:       store.Scope{ProjectID: "proj"},
			CreatedAt:   base.Add(time.Duration(i) * time.Minute).UnixMilli(),
			AccessCount: i * 3,
		})
		if err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	stats, err := e.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if stats.Deduplicated != 2 {
		t.Errorf("Deduplicated = %d, want 2", stats.Deduplicated)
	}

	// Earliest record survives, carrying the highest access count seen.
	keeper, err := e.DB.GetByID(ids[0])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if keeper == nil {
		t.Fatal("earliest duplicate did not survive")
	}
	if keeper.AccessCount != 6 {
		t.Errorf("AccessCount = %d, want carried max 6", keeper.AccessCount)
	}

	for _, id := range ids[1:] {
		if rec, _ := e.DB.GetByID(id); rec != nil {
			t.Errorf("duplicate %s survived", id)
		}
	}
}

// Deduplicating a preference group must not delete the active record: an
// older superseded row can never be re-activated.
func TestCompactDedupKeepsActivePreference(t *testing.T) {
	e := testEngine(t)
	scope := store.Scope{ProjectID: "proj"}
	now := time.Now()

	first, err := e.ProcessCandidate(candidate("indent_style", "tabs", 0.8), scope, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	// Same key, same payload content, later timestamp: a true duplicate
	// that supersedes the original.
	second, err := e.ProcessCandidate(candidate("indent_style", "tabs", 0.8), scope, now)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if _, err := e.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	active, err := e.DB.ActivePreference("proj", "indent_style")
	if err != nil {
		t.Fatalf("ActivePreference: %v", err)
	}
	if active == nil {
		t.Fatal("no active preference after dedup")
	}
	if active.ID != second.ActiveRecordID {
		t.Errorf("active = %q, want %q", active.ID, second.ActiveRecordID)
	}
	if rec, _ := e.DB.GetByID(first.ActiveRecordID); rec != nil {
		t.Errorf("superseded duplicate %s survived dedup", first.ActiveRecordID)
	}
}

func TestCompactIdempotent(t *testing.T) {
	e := testEngine(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := e.DB.Put(&store.MemoryRecord{
			Type:      store.RecordProjectKnowledge,
			Payload:   store.KnowledgePayload{Topic: "build", Content: "make test"},
			Scope:     store.Scope{ProjectID: "proj"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute).UnixMilli(),
		}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	if _, err := e.Compact(); err != nil {
		t.Fatalf("first Compact: %v", err)
	}

	stats, err := e.Compact()
	if err != nil {
		t.Fatalf("second Compact: %v", err)
	}
	if stats.Removed != 0 || stats.Deduplicated != 0 {
		t.Errorf("second run not a no-op: %+v", stats)
	}
}

func TestCompactPreservesDistinctPayloads(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	putKnowledge(t, e, "proj", "build", "make test", now)
	putKnowledge(t, e, "proj", "build", "make lint", now)

	stats, err := e.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if stats.Deduplicated != 0 {
		t.Errorf("distinct payloads deduplicated: %d", stats.Deduplicated)
	}

	count, _ := e.DB.CountByType(store.RecordProjectKnowledge)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
