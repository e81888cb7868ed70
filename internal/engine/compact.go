package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/recallmem/recall/internal/store"
)

// CompactionLimits bound long-term store growth.
type CompactionLimits struct {
	MaxBytes            int64 // store size trigger
	MaxRecords          int   // record count trigger
	ToolUseRetention    int   // newest N tool_use records kept
	CorrectionRetention int   // newest N correction_pattern records kept
}

// DefaultCompactionLimits returns the compaction defaults.
func DefaultCompactionLimits() CompactionLimits {
	return CompactionLimits{
		MaxBytes:            10 * 1024 * 1024,
		MaxRecords:          10000,
		ToolUseRetention:    1000,
		CorrectionRetention: 100,
	}
}

// CompactStats reports what a compaction run did.
type CompactStats struct {
	Removed      int           `json:"removed"`
	Deduplicated int           `json:"deduplicated"`
	Duration     time.Duration `json:"duration_ms"`
}

// ShouldCompact reports whether the store has crossed a size or count
// threshold.
func (e *Engine) ShouldCompact() (bool, error) {
	count, err := e.DB.CountRecords()
	if err != nil {
		return false, fmt.Errorf("should compact: %w", err)
	}
	if count > e.opts.Compaction.MaxRecords {
		return true, nil
	}

	size, err := e.DB.SizeBytes()
	if err != nil {
		return false, fmt.Errorf("should compact: %w", err)
	}
	return size > e.opts.Compaction.MaxBytes, nil
}

// Compact deduplicates identical records and prunes volatile types beyond
// their retention caps, then reclaims storage. Preferences and project
// knowledge are deduplicated but never pruned.
//
// Each sub-step commits independently: an abort mid-run leaves the store
// consistent, and the next trigger picks up where this one stopped.
// Running twice with no intervening writes is a no-op on the second run.
func (e *Engine) Compact() (CompactStats, error) {
	e.compactMu.Lock()
	defer e.compactMu.Unlock()

	start := time.Now()
	var stats CompactStats

	deduped, err := e.dedup()
	if err != nil {
		return stats, fmt.Errorf("compact: %w", err)
	}
	stats.Deduplicated = deduped

	for _, rule := range []struct {
		recordType store.RecordType
		keep       int
	}{
		{store.RecordToolUse, e.opts.Compaction.ToolUseRetention},
		{store.RecordCorrectionPattern, e.opts.Compaction.CorrectionRetention},
	} {
		removed, err := e.prune(rule.recordType, rule.keep)
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("compact: %w", err)
		}
		stats.Removed += removed
	}

	if stats.Removed > 0 || stats.Deduplicated > 0 {
		if err := e.DB.Vacuum(); err != nil {
			log.Printf("compact: vacuum: %v", err)
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// dedupKey identifies records that collapse to one.
type dedupKey struct {
	recordType store.RecordType
	prefKey    string
	payload    string
}

// dedup collapses records with identical (type, key, payload) to a single
// row, keeping the earliest createdAt for provenance and carrying forward
// the maximum accessCount seen among the duplicates.
func (e *Engine) dedup() (int, error) {
	recs, err := e.DB.AllRecords()
	if err != nil {
		return 0, fmt.Errorf("dedup: %w", err)
	}

	groups := make(map[dedupKey][]store.MemoryRecord)
	for _, rec := range recs {
		payload, err := store.MarshalPayload(rec.Payload)
		if err != nil {
			continue
		}
		k := dedupKey{rec.Type, rec.Scope.ProjectID + "\x00" + rec.PreferenceKey, payload}
		groups[k] = append(groups[k], rec)
	}

	removed := 0
	for _, group := range groups {
		if len(group) <= 1 {
			continue
		}

		// AllRecords orders oldest-first, so the earliest createdAt is the
		// head. An active preference overrides that choice: deleting it
		// would break the supersession chain, and an older superseded
		// record can never be re-activated.
		keeper := group[0]
		for _, rec := range group {
			if rec.IsActive {
				keeper = rec
				break
			}
		}

		maxAccess := keeper.AccessCount
		var doomed []string
		for _, rec := range group {
			if rec.ID == keeper.ID {
				continue
			}
			if rec.AccessCount > maxAccess {
				maxAccess = rec.AccessCount
			}
			doomed = append(doomed, rec.ID)
		}

		if _, err := e.DB.DeleteRecords(doomed); err != nil {
			return removed, fmt.Errorf("dedup: %w", err)
		}
		if maxAccess > keeper.AccessCount {
			if err := e.DB.SetAccessCount(keeper.ID, maxAccess); err != nil {
				return removed, fmt.Errorf("dedup: %w", err)
			}
		}
		removed += len(doomed)
	}

	return removed, nil
}

// prune deletes records of a volatile type beyond the newest keep.
func (e *Engine) prune(t store.RecordType, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	ids, err := e.DB.RecordsBeyondRetention(t, keep)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", t, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	deleted, err := e.DB.DeleteRecords(ids)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", t, err)
	}
	return deleted, nil
}
