package store

import (
	"testing"
	"time"
)

func TestInitHookSession(t *testing.T) {
	db := testDB(t)

	s, err := db.InitHookSession("s1", "/tmp/proj")
	if err != nil {
		t.Fatalf("InitHookSession: %v", err)
	}
	if s.Status != "active" {
		t.Errorf("Status = %q, want active", s.Status)
	}

	// Re-init resumes rather than resetting.
	if err := db.IncrementPromptCount("s1"); err != nil {
		t.Fatalf("IncrementPromptCount: %v", err)
	}
	again, err := db.InitHookSession("s1", "/tmp/proj")
	if err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if again.Status != "active" {
		t.Errorf("Status = %q, want active", again.Status)
	}

	got, _ := db.GetHookSession("s1")
	if got.PromptCount != 1 {
		t.Errorf("PromptCount = %d, want 1 after resume", got.PromptCount)
	}
}

func TestRecordToolCallRing(t *testing.T) {
	db := testDB(t)

	if _, err := db.InitHookSession("s1", ""); err != nil {
		t.Fatalf("InitHookSession: %v", err)
	}

	for i := 0; i < 25; i++ {
		if err := db.RecordToolCall("s1", "Bash", int64(i)); err != nil {
			t.Fatalf("RecordToolCall %d: %v", i, err)
		}
	}

	s, err := db.GetHookSession("s1")
	if err != nil {
		t.Fatalf("GetHookSession: %v", err)
	}
	if len(s.ToolHistory) != maxToolHistory {
		t.Errorf("history len = %d, want %d", len(s.ToolHistory), maxToolHistory)
	}
	// Ring keeps the newest entries.
	if s.ToolHistory[len(s.ToolHistory)-1].At != 24 {
		t.Errorf("last entry At = %d, want 24", s.ToolHistory[len(s.ToolHistory)-1].At)
	}
	if s.ToolCount != 25 {
		t.Errorf("ToolCount = %d, want 25", s.ToolCount)
	}
}

func TestRecordToolCallImplicitSession(t *testing.T) {
	db := testDB(t)

	// No init; the session must be created on the fly.
	if err := db.RecordToolCall("orphan", "Edit", 1); err != nil {
		t.Fatalf("RecordToolCall: %v", err)
	}
	s, err := db.GetHookSession("orphan")
	if err != nil {
		t.Fatalf("GetHookSession: %v", err)
	}
	if s == nil {
		t.Fatal("session not created implicitly")
	}
	if s.ToolCount != 1 {
		t.Errorf("ToolCount = %d, want 1", s.ToolCount)
	}
}

func TestMarkSearched(t *testing.T) {
	db := testDB(t)

	if _, err := db.InitHookSession("s1", ""); err != nil {
		t.Fatalf("InitHookSession: %v", err)
	}

	now := time.Now().UnixMilli()
	if err := db.MarkSearched("s1", "sqlite wal mode", now); err != nil {
		t.Fatalf("MarkSearched: %v", err)
	}

	s, _ := db.GetHookSession("s1")
	if s.LastSearchAt == nil || *s.LastSearchAt != now {
		t.Errorf("LastSearchAt = %v, want %d", s.LastSearchAt, now)
	}
	if s.LastSearchQuery != "sqlite wal mode" {
		t.Errorf("LastSearchQuery = %q", s.LastSearchQuery)
	}
}

func TestCompleteHookSession(t *testing.T) {
	db := testDB(t)

	if _, err := db.InitHookSession("s1", ""); err != nil {
		t.Fatalf("InitHookSession: %v", err)
	}
	if err := db.CompleteHookSession("s1"); err != nil {
		t.Fatalf("CompleteHookSession: %v", err)
	}

	s, _ := db.GetHookSession("s1")
	if s.Status != "completed" {
		t.Errorf("Status = %q, want completed", s.Status)
	}
	if s.EndedAt == nil {
		t.Error("EndedAt not set")
	}

	// Completing twice is a no-op, not an error.
	if err := db.CompleteHookSession("s1"); err != nil {
		t.Errorf("second complete: %v", err)
	}
}

func TestGetRecentHookSessions(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := db.InitHookSession(id, "/tmp/"+id); err != nil {
			t.Fatalf("InitHookSession %s: %v", id, err)
		}
	}

	got, err := db.GetRecentHookSessions(2)
	if err != nil {
		t.Fatalf("GetRecentHookSessions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
