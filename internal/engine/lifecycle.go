package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/recallmem/recall/internal/store"
)

// PreferenceCandidate is an already-classified preference statement, as
// produced by a Classifier. The engine never inspects raw language here;
// override detection ("from now on", "actually", ...) happens upstream.
type PreferenceCandidate struct {
	Key              string  `json:"key"`
	Value            string  `json:"value"`
	RawText          string  `json:"raw_text"`
	Confidence       float64 `json:"confidence"`
	IsOverrideSignal bool    `json:"is_override_signal"`
}

// LifecycleResult reports what happened to a candidate.
type LifecycleResult struct {
	Stored         bool   `json:"stored"`
	Conflict       bool   `json:"conflict"`
	ActiveRecordID string `json:"active_record_id,omitempty"`
}

// ProcessCandidate runs a preference candidate through the lifecycle:
//
//   - below the confidence threshold: rejected, nothing stored
//   - no existing records for the key: stored active
//   - existing active record, candidate has equal-or-higher confidence or
//     an override signal: stored active, old record superseded
//   - otherwise: stored inactive for audit, conflict reported
//
// Calls are serialized so two candidates for the same key arriving
// together cannot both read the same "current active" record; with equal
// timestamps the one processed later wins, by insertion order.
func (e *Engine) ProcessCandidate(c PreferenceCandidate, scope store.Scope, now time.Time) (LifecycleResult, error) {
	if c.Key == "" {
		return LifecycleResult{}, fmt.Errorf("process candidate: empty preference key")
	}
	c.Key = normalizeKey(c.Key)

	if c.Confidence < e.opts.ConfidenceThreshold {
		return LifecycleResult{Stored: false}, nil
	}

	e.prefMu.Lock()
	defer e.prefMu.Unlock()

	current, err := e.DB.ActivePreference(scope.ProjectID, c.Key)
	if err != nil {
		return LifecycleResult{}, fmt.Errorf("process candidate: %w", err)
	}

	rec := &store.MemoryRecord{
		Type: store.RecordPreference,
		Payload: store.PreferencePayload{
			Key:        c.Key,
			Value:      c.Value,
			RawText:    c.RawText,
			Confidence: c.Confidence,
		},
		Scope:         scope,
		CreatedAt:     now.UnixMilli(),
		PreferenceKey: c.Key,
	}

	if current == nil {
		rec.IsActive = true
		id, err := e.DB.Put(rec)
		if err != nil {
			return LifecycleResult{}, fmt.Errorf("process candidate: %w", err)
		}
		return LifecycleResult{Stored: true, ActiveRecordID: id}, nil
	}

	supersede := c.IsOverrideSignal || c.Confidence >= storedConfidence(current)

	// Insert the candidate first, inactive. If it wins, MarkSuperseded
	// flips both records in one transaction; if not, it stays as audit.
	id, err := e.DB.Put(rec)
	if err != nil {
		return LifecycleResult{}, fmt.Errorf("process candidate: %w", err)
	}

	if !supersede {
		return LifecycleResult{Stored: true, Conflict: true, ActiveRecordID: current.ID}, nil
	}

	if err := e.DB.MarkSuperseded(current.ID, id); err != nil {
		return LifecycleResult{}, fmt.Errorf("process candidate: %w", err)
	}
	return LifecycleResult{Stored: true, ActiveRecordID: id}, nil
}

// storedConfidence reads the capture-time confidence off an active
// preference record. Records stored before confidence was recorded (or
// with an opaque payload) compare as zero, so any gated candidate wins.
func storedConfidence(rec *store.MemoryRecord) float64 {
	if p, ok := rec.Payload.(store.PreferencePayload); ok {
		return p.Confidence
	}
	return 0
}

// normalizeKey canonicalizes a preference key: lowercase, spaces and
// hyphens collapse to underscores.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
