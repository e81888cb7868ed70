package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/recallmem/recall/internal/store"
)

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := s.buildContext(q.Get("project"), q.Get("session_id"))

	writeJSON(w, http.StatusOK, map[string]string{
		"context": ctx,
	})
}

// buildContext renders the markdown injected at session start: active
// preferences first (they are standing instructions), then recent project
// knowledge and correction patterns, then recent sessions.
func (s *Server) buildContext(projectID, currentSessionID string) string {
	var b strings.Builder

	b.WriteString("<context>\n## Recall — Project Memory\n")

	prefs, err := s.db.ActivePreferences(projectID)
	if err == nil && len(prefs) > 0 {
		b.WriteString("\n### Active Preferences\n")
		for _, rec := range prefs {
			p, ok := rec.Payload.(store.PreferencePayload)
			if !ok {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", p.Key, p.Value))
		}
	}

	const maxContextItems = 10

	recent, err := s.db.RecentRecords(projectID, []store.RecordType{
		store.RecordProjectKnowledge, store.RecordCorrectionPattern,
	}, maxContextItems)
	if err == nil && len(recent) > 0 {
		b.WriteString("\n### Project Memory\n")
		for _, rec := range recent {
			line := contextLine(rec)
			if line == "" {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s\n", line))
		}
	}

	sessions, err := s.db.GetRecentHookSessions(5)
	if err == nil && len(sessions) > 0 {
		b.WriteString("\n### Recent Sessions\n")
		for _, sess := range sessions {
			if sess.SessionID == currentSessionID {
				continue
			}
			ts := time.UnixMilli(sess.StartedAt).Format("2006-01-02 15:04")
			project := sess.Project
			if project == "" {
				project = "unknown"
			} else {
				project = filepath.Base(project)
			}
			b.WriteString(fmt.Sprintf("- [%s] %s: %s (%d tools, %d prompts)\n",
				ts, project, sess.Status, sess.ToolCount, sess.PromptCount))
		}
	}

	b.WriteString("</context>")
	return b.String()
}

// contextLine renders one record as a context bullet, by type.
func contextLine(rec store.MemoryRecord) string {
	switch p := rec.Payload.(type) {
	case store.KnowledgePayload:
		if p.Topic != "" {
			return fmt.Sprintf("[%s] %s", p.Topic, p.Content)
		}
		return p.Content
	case store.CorrectionPayload:
		return fmt.Sprintf("correction (seen %dx): %q not %q", p.Frequency, p.CorrectedForm, p.OriginalForm)
	default:
		return ""
	}
}
