package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/recallmem/recall/internal/engine"
	"github.com/recallmem/recall/internal/store"
)

// eventRequest is the wire form for POST /api/events. Payload is decoded
// per record type; unknown fields are dropped, not rejected.
type eventRequest struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Project   string          `json:"project"`
	FilePath  string          `json:"file_path"`
	Payload   json.RawMessage `json:"payload"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	t := store.RecordType(req.Type)
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "unknown event type: "+req.Type)
		return
	}

	scope := store.Scope{ProjectID: req.Project, FilePath: req.FilePath, SessionID: req.SessionID}

	switch t {
	case store.RecordToolUse:
		s.addToolUse(w, req, scope)
	case store.RecordPreference:
		s.addPreference(w, req, scope)
	case store.RecordProjectKnowledge:
		s.addKnowledge(w, req, scope)
	case store.RecordCorrectionPattern:
		s.addCorrection(w, req, scope)
	}
}

func (s *Server) addToolUse(w http.ResponseWriter, req eventRequest, scope store.Scope) {
	var p store.ToolUsePayload
	if err := json.Unmarshal(req.Payload, &p); err != nil || p.Tool == "" {
		writeError(w, http.StatusBadRequest, "tool_use payload requires a tool name")
		return
	}

	id, err := s.db.Put(&store.MemoryRecord{Type: store.RecordToolUse, Payload: p, Scope: scope})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.SessionID != "" {
		now := time.Now().UnixMilli()
		if err := s.db.RecordToolCall(req.SessionID, p.Tool, now); err != nil {
			log.Printf("record tool call: %v", err)
		}
		// A memory-search tool call counts for guard freshness the same
		// way the retrieve endpoint does.
		if isSearchTool(p.Tool) {
			if err := s.db.MarkSearched(req.SessionID, p.InputSummary, now); err != nil {
				log.Printf("mark searched: %v", err)
			}
		}
	}

	// Repeated structured actions can imply a preference without the
	// user ever stating one.
	for _, c := range s.detector.Observe(scope.ProjectID, p.Tool, scope.FilePath) {
		if _, err := s.engine.ProcessCandidate(c, scope, time.Now()); err != nil {
			log.Printf("action pattern candidate: %v", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "id": id})
}

// isSearchTool recognizes tools that query this memory, in both MCP
// naming ("mcp__recall__search") and plain command form.
func isSearchTool(tool string) bool {
	t := strings.ToLower(tool)
	return strings.Contains(t, "recall") && strings.Contains(t, "search")
}

func (s *Server) addPreference(w http.ResponseWriter, req eventRequest, scope store.Scope) {
	var c engine.PreferenceCandidate
	if err := json.Unmarshal(req.Payload, &c); err != nil || c.Key == "" {
		writeError(w, http.StatusBadRequest, "preference payload requires a key")
		return
	}

	result, err := s.engine.ProcessCandidate(c, scope, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) addKnowledge(w http.ResponseWriter, req eventRequest, scope store.Scope) {
	var p store.KnowledgePayload
	if err := json.Unmarshal(req.Payload, &p); err != nil || p.Content == "" {
		writeError(w, http.StatusBadRequest, "project_knowledge payload requires content")
		return
	}

	id, err := s.db.Put(&store.MemoryRecord{Type: store.RecordProjectKnowledge, Payload: p, Scope: scope})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "id": id})
}

func (s *Server) addCorrection(w http.ResponseWriter, req eventRequest, scope store.Scope) {
	var p store.CorrectionPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil || p.CorrectedForm == "" {
		writeError(w, http.StatusBadRequest, "correction_pattern payload requires a corrected form")
		return
	}

	// A repeat of a known correction bumps its frequency instead of
	// inserting a duplicate row.
	bumped, err := s.db.BumpCorrectionFrequency(scope.ProjectID, p.OriginalForm, p.CorrectedForm)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bumped {
		writeJSON(w, http.StatusOK, map[string]string{"status": "bumped"})
		return
	}

	if p.Frequency == 0 {
		p.Frequency = 1
	}
	id, err := s.db.Put(&store.MemoryRecord{Type: store.RecordCorrectionPattern, Payload: p, Scope: scope})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "id": id})
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Prompt  string `json:"prompt"`
		Project string `json:"project"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt required")
		return
	}

	if err := s.db.IncrementPromptCount(sessionID); err != nil {
		log.Printf("increment prompt count: %v", err)
	}

	scope := store.Scope{ProjectID: req.Project, SessionID: sessionID}

	var results []engine.LifecycleResult
	if s.engine.Classifier != nil {
		for _, c := range s.engine.Classifier.Classify(req.Prompt, nil) {
			res, err := s.engine.ProcessCandidate(c, scope, time.Now())
			if err != nil {
				log.Printf("prompt candidate %s: %v", c.Key, err)
				continue
			}
			results = append(results, res)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"candidates": len(results),
		"results":    results,
	})
}

type recordJSON struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Project       string          `json:"project,omitempty"`
	FilePath      string          `json:"file_path,omitempty"`
	CreatedAt     int64           `json:"created_at"`
	AccessCount   int             `json:"access_count"`
	PreferenceKey string          `json:"preference_key,omitempty"`
	IsActive      bool            `json:"is_active,omitempty"`
	Score         float64         `json:"score,omitempty"`
}

func toRecordJSON(rec store.MemoryRecord, score float64) recordJSON {
	payload, err := store.MarshalPayload(rec.Payload)
	if err != nil {
		payload = "{}"
	}
	return recordJSON{
		ID:            rec.ID,
		Type:          string(rec.Type),
		Payload:       json.RawMessage(payload),
		Project:       rec.Scope.ProjectID,
		FilePath:      rec.Scope.FilePath,
		CreatedAt:     rec.CreatedAt,
		AccessCount:   rec.AccessCount,
		PreferenceKey: rec.PreferenceKey,
		IsActive:      rec.IsActive,
		Score:         score,
	}
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	limit := 0
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	ctx := engine.Context{
		ProjectID: q.Get("project"),
		FilePath:  q.Get("file"),
		SessionID: q.Get("session"),
	}

	results := s.engine.Retrieve(query, ctx, limit)

	// A retrieval with a session attached counts as that session's
	// memory search for guard freshness.
	if ctx.SessionID != "" {
		if err := s.db.MarkSearched(ctx.SessionID, query, time.Now().UnixMilli()); err != nil {
			log.Printf("mark searched: %v", err)
		}
	}

	out := make([]recordJSON, len(results))
	for i, res := range results {
		out[i] = toRecordJSON(res.Record, res.Score)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(out),
		"results": out,
	})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")

	var prefs []store.MemoryRecord
	var err error
	if r.URL.Query().Get("all") == "true" {
		// Audit view: superseded records included, newest first.
		prefs, err = s.db.RecentRecords(project, []store.RecordType{store.RecordPreference}, 1000)
	} else {
		prefs, err = s.db.ActivePreferences(project)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]recordJSON, len(prefs))
	for i, rec := range prefs {
		out[i] = toRecordJSON(rec, 0)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(out),
		"preferences": out,
	})
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	if !force {
		due, err := s.engine.ShouldCompact()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !due {
			writeJSON(w, http.StatusOK, map[string]string{"status": "not due"})
			return
		}
	}

	stats, err := s.engine.Compact()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "compacted",
		"removed":      stats.Removed,
		"deduplicated": stats.Deduplicated,
		"duration":     stats.Duration.String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.db.CountRecords()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byType := map[string]int{}
	for _, t := range []store.RecordType{
		store.RecordToolUse, store.RecordPreference,
		store.RecordProjectKnowledge, store.RecordCorrectionPattern,
	} {
		n, err := s.db.CountByType(t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		byType[string(t)] = n
	}

	size, err := s.db.SizeBytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":    total,
		"by_type":    byType,
		"size_bytes": size,
		"db_path":    s.db.Path,
	})
}

func (s *Server) handleSessionInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Project   string `json:"project"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	sess, err := s.db.InitHookSession(req.SessionID, req.Project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.SessionID,
		"status":     sess.Status,
		"tool_count": sess.ToolCount,
	})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.db.GetHookSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.db.CompleteHookSession(sessionID); err != nil {
		// Completing an already-completed or unknown session is not a
		// server error. Acknowledge and note it.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "note": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
