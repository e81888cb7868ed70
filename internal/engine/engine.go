package engine

import (
	"log"
	"sync"
	"time"

	"github.com/recallmem/recall/internal/store"
)

// Options are the engine's tunables. Zero values fall back to defaults.
type Options struct {
	ConfidenceThreshold float64
	RetrieveLimit       int
	Scores              ScoreConfig
	Compaction          CompactionLimits
}

// DefaultOptions returns engine defaults.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.5,
		RetrieveLimit:       5,
		Scores:              DefaultScoreConfig(),
		Compaction:          DefaultCompactionLimits(),
	}
}

// Engine owns the preference lifecycle, retrieval, and compaction against
// a single store. Construct one per store and pass it by reference; there
// is no package-level shared state.
type Engine struct {
	DB         *store.DB
	Classifier Classifier
	opts       Options

	prefMu    sync.Mutex // serializes candidate processing per store
	compactMu sync.Mutex // compaction never runs concurrently with itself
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New creates an Engine over the given store.
func New(db *store.DB, opts Options) *Engine {
	if opts.ConfidenceThreshold == 0 {
		opts.ConfidenceThreshold = 0.5
	}
	if opts.RetrieveLimit == 0 {
		opts.RetrieveLimit = 5
	}
	if opts.Scores == (ScoreConfig{}) {
		opts.Scores = DefaultScoreConfig()
	}
	if opts.Compaction == (CompactionLimits{}) {
		opts.Compaction = DefaultCompactionLimits()
	}
	return &Engine{
		DB:     db,
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// SetClassifier configures the preference classifier.
func (e *Engine) SetClassifier(c Classifier) {
	e.Classifier = c
}

// StartMaintenanceTimer runs a compaction check at startup and then daily.
// The startup check completes before this returns, so callers can start
// serving queries knowing the store is within bounds.
func (e *Engine) StartMaintenanceTimer() {
	e.maintain()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.maintain()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) maintain() {
	due, err := e.ShouldCompact()
	if err != nil {
		log.Printf("compaction check: %v", err)
		return
	}
	if !due {
		return
	}
	stats, err := e.Compact()
	if err != nil {
		log.Printf("compaction aborted: %v", err)
		return
	}
	log.Printf("compaction: removed %d, deduplicated %d in %s",
		stats.Removed, stats.Deduplicated, stats.Duration)
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}
