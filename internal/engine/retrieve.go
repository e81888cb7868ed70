package engine

import (
	"log"
	"sort"
	"time"

	"github.com/recallmem/recall/internal/store"
)

// Result is one ranked retrieval hit.
type Result struct {
	Record store.MemoryRecord `json:"record"`
	Score  float64            `json:"score"`
}

// typePriority orders record types within equal scores: standing
// instructions first, transient tool noise last.
var typePriority = map[store.RecordType]int{
	store.RecordPreference:        0,
	store.RecordProjectKnowledge:  1,
	store.RecordCorrectionPattern: 2,
	store.RecordToolUse:           3,
}

// Retrieve scores and ranks stored records against a query and context,
// returning at most limit results (default 5 when limit <= 0).
//
// Active preferences for the project are always candidates regardless of
// keyword overlap: they are standing instructions, not a topic to search
// for. Storage faults degrade to an empty result set — retrieval sits on
// the interactive path and never propagates an error to the caller.
func (e *Engine) Retrieve(queryText string, ctx Context, limit int) []Result {
	if limit <= 0 {
		limit = e.opts.RetrieveLimit
	}
	now := time.Now()

	keywords := ExtractKeywords(queryText)
	ctx.Keywords = keywords

	scope := store.Scope{ProjectID: ctx.ProjectID, FilePath: ctx.FilePath, SessionID: ctx.SessionID}

	candidates, err := e.DB.QueryCandidates(scope, keywords, nil)
	if err != nil {
		log.Printf("retrieve: query candidates: %v", err)
		candidates = nil
	}

	prefs, err := e.DB.ActivePreferences(ctx.ProjectID)
	if err != nil {
		log.Printf("retrieve: active preferences: %v", err)
		prefs = nil
	}

	// Merge, deduplicating by record ID.
	seen := make(map[string]bool, len(candidates)+len(prefs))
	merged := make([]store.MemoryRecord, 0, len(candidates)+len(prefs))
	for _, rec := range append(candidates, prefs...) {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		// Superseded preferences are audit records, not answers.
		if rec.Type == store.RecordPreference && !rec.IsActive {
			continue
		}
		merged = append(merged, rec)
	}
	if len(merged) == 0 {
		return nil
	}

	results := make([]Result, 0, len(merged))
	for _, rec := range merged {
		results = append(results, Result{
			Record: rec,
			Score:  Score(rec, ctx, now, e.opts.Scores),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		pi, pj := typePriority[results[i].Record.Type], typePriority[results[j].Record.Type]
		if pi != pj {
			return pi < pj
		}
		return results[i].Record.CreatedAt > results[j].Record.CreatedAt
	})

	if len(results) > limit {
		results = results[:limit]
	}

	// Only consumed-and-surfaced results count toward frequency boosting.
	nowMs := now.UnixMilli()
	for _, r := range results {
		if err := e.DB.Touch(r.Record.ID, nowMs); err != nil {
			log.Printf("retrieve: touch %s: %v", r.Record.ID, err)
		}
	}

	return results
}
