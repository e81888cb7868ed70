package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// maxToolHistory caps the per-session tool history ring.
const maxToolHistory = 20

// HookSession tracks per-session hook state: which tools fired, and when
// the session last ran a memory search. The guard hook reads this to
// decide whether file operations may proceed without a fresh search.
type HookSession struct {
	ID              int64      `json:"id"`
	SessionID       string     `json:"session_id"`
	Project         string     `json:"project"`
	StartedAt       int64      `json:"started_at"`
	EndedAt         *int64     `json:"ended_at,omitempty"`
	Status          string     `json:"status"`
	LastSearchAt    *int64     `json:"last_search_at,omitempty"`
	LastSearchQuery string     `json:"last_search_query,omitempty"`
	ToolHistory     []ToolCall `json:"tool_history,omitempty"`
	PromptCount     int        `json:"prompt_count"`
	ToolCount       int        `json:"tool_count"`
}

// ToolCall is one entry in a session's tool history ring.
type ToolCall struct {
	Tool string `json:"tool"`
	At   int64  `json:"at"`
}

// InitHookSession creates or resumes a hook session. An existing active
// session with the same ID is returned as-is.
func (db *DB) InitHookSession(sessionID, project string) (*HookSession, error) {
	existing, err := db.GetHookSession(sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == "active" {
		return existing, nil
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO hook_sessions (session_id, project, started_at, status)
		VALUES (?, ?, ?, 'active')
		ON CONFLICT(session_id) DO UPDATE SET status = 'active', ended_at = NULL
	`, sessionID, project, now)
	if err != nil {
		return nil, fmt.Errorf("init hook session: %w", err)
	}

	id, _ := result.LastInsertId()
	return &HookSession{
		ID:        id,
		SessionID: sessionID,
		Project:   project,
		StartedAt: now,
		Status:    "active",
	}, nil
}

// GetHookSession returns a hook session by its session ID, or nil.
func (db *DB) GetHookSession(sessionID string) (*HookSession, error) {
	var s HookSession
	var endedAt, lastSearchAt sql.NullInt64
	var project, lastSearchQuery sql.NullString
	var toolHistory string

	err := db.QueryRow(`
		SELECT id, session_id, project, started_at, ended_at, status,
			last_search_at, last_search_query, tool_history, prompt_count, tool_count
		FROM hook_sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &project, &s.StartedAt, &endedAt, &s.Status,
		&lastSearchAt, &lastSearchQuery, &toolHistory, &s.PromptCount, &s.ToolCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hook session: %w", err)
	}

	s.Project = project.String
	s.LastSearchQuery = lastSearchQuery.String
	if endedAt.Valid {
		s.EndedAt = &endedAt.Int64
	}
	if lastSearchAt.Valid {
		s.LastSearchAt = &lastSearchAt.Int64
	}
	if err := json.Unmarshal([]byte(toolHistory), &s.ToolHistory); err != nil {
		s.ToolHistory = nil
	}
	return &s, nil
}

// RecordToolCall appends a tool call to the session history ring and
// increments the tool count. Unknown sessions are created implicitly so a
// missed init hook doesn't lose observations.
func (db *DB) RecordToolCall(sessionID, tool string, at int64) error {
	s, err := db.GetHookSession(sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		if s, err = db.InitHookSession(sessionID, ""); err != nil {
			return err
		}
	}

	history := append(s.ToolHistory, ToolCall{Tool: tool, At: at})
	if len(history) > maxToolHistory {
		history = history[len(history)-maxToolHistory:]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("record tool call: %w", err)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err = db.Exec(`
		UPDATE hook_sessions SET tool_history = ?, tool_count = tool_count + 1
		WHERE session_id = ?
	`, string(data), sessionID)
	if err != nil {
		return fmt.Errorf("record tool call: %w", err)
	}
	return nil
}

// MarkSearched records that a memory search ran for this session.
func (db *DB) MarkSearched(sessionID, query string, at int64) error {
	if sessionID == "" {
		return nil
	}
	if s, err := db.GetHookSession(sessionID); err != nil {
		return err
	} else if s == nil {
		if _, err := db.InitHookSession(sessionID, ""); err != nil {
			return err
		}
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.Exec(`
		UPDATE hook_sessions SET last_search_at = ?, last_search_query = ?
		WHERE session_id = ?
	`, at, query, sessionID)
	if err != nil {
		return fmt.Errorf("mark searched: %w", err)
	}
	return nil
}

// IncrementPromptCount bumps the prompt counter for a session.
func (db *DB) IncrementPromptCount(sessionID string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.Exec(`
		UPDATE hook_sessions SET prompt_count = prompt_count + 1
		WHERE session_id = ? AND status = 'active'
	`, sessionID)
	if err != nil {
		return fmt.Errorf("increment prompt count: %w", err)
	}
	return nil
}

// CompleteHookSession marks a session as completed. Completing a session
// that is already completed (or never existed) is not an error.
func (db *DB) CompleteHookSession(sessionID string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE hook_sessions SET status = 'completed', ended_at = COALESCE(ended_at, ?)
		WHERE session_id = ? AND status = 'active'
	`, now, sessionID)
	if err != nil {
		return fmt.Errorf("complete hook session: %w", err)
	}
	return nil
}

// GetRecentHookSessions returns the most recent sessions, newest first.
func (db *DB) GetRecentHookSessions(limit int) ([]HookSession, error) {
	rows, err := db.Query(`
		SELECT id, session_id, project, started_at, ended_at, status,
			last_search_at, last_search_query, tool_history, prompt_count, tool_count
		FROM hook_sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent hook sessions: %w", err)
	}
	defer rows.Close()

	var sessions []HookSession
	for rows.Next() {
		var s HookSession
		var endedAt, lastSearchAt sql.NullInt64
		var project, lastSearchQuery sql.NullString
		var toolHistory string
		if err := rows.Scan(&s.ID, &s.SessionID, &project, &s.StartedAt, &endedAt, &s.Status,
			&lastSearchAt, &lastSearchQuery, &toolHistory, &s.PromptCount, &s.ToolCount); err != nil {
			return nil, fmt.Errorf("scan hook session: %w", err)
		}
		s.Project = project.String
		s.LastSearchQuery = lastSearchQuery.String
		if endedAt.Valid {
			s.EndedAt = &endedAt.Int64
		}
		if lastSearchAt.Valid {
			s.LastSearchAt = &lastSearchAt.Int64
		}
		json.Unmarshal([]byte(toolHistory), &s.ToolHistory)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
