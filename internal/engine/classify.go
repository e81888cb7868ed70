package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Classifier turns free text into preference candidates. The engine only
// depends on this interface; rule-based, heuristic, and externally-analyzed
// strategies are interchangeable behind it.
type Classifier interface {
	Classify(text string, recentContext []string) []PreferenceCandidate
}

// overridePhrases signal that a statement explicitly replaces an earlier
// one. Detected here, consumed by the lifecycle manager.
var overridePhrases = []string{
	"from now on", "actually", "changed my mind", "instead of that",
	"forget what i said", "scratch that", "no longer",
}

// emphasisPhrases raise confidence: the user is stating a rule, not
// describing a one-off.
var emphasisPhrases = []string{
	"always", "never", "remember", "don't forget", "make sure",
	"going forward", "in this project",
}

// prefRule maps a sentence pattern to a preference key. The first capture
// group is the value.
type prefRule struct {
	pattern    *regexp.Regexp
	key        string
	confidence float64
}

var defaultRules = []prefRule{
	{regexp.MustCompile(`(?i)\btests?\s+(?:go|live|belong)s?\s+in\s+([\w./-]+)`), "test_location", 0.80},
	{regexp.MustCompile(`(?i)\b(?:put|create|save|write)\s+(?:all\s+)?tests?\s+in(?:to)?\s+([\w./-]+)`), "test_location", 0.75},
	{regexp.MustCompile(`(?i)\buse\s+(tabs|spaces)\s+for\s+indent`), "indent_style", 0.80},
	{regexp.MustCompile(`(?i)\bindent(?:ation)?\s+(?:with|using)\s+(tabs|spaces)`), "indent_style", 0.75},
	{regexp.MustCompile(`(?i)\balways\s+use\s+([\w./@-]+)`), "preferred_tool", 0.70},
	{regexp.MustCompile(`(?i)\bnever\s+use\s+([\w./@-]+)`), "avoided_tool", 0.70},
	{regexp.MustCompile(`(?i)\bprefer\s+([\w./@-]+)\s+(?:over|to|instead of)\s+[\w./@-]+`), "preferred_tool", 0.65},
	{regexp.MustCompile(`(?i)\bbranch(?:es)?\s+(?:are\s+)?named?\s+([\w./-]+)`), "branch_naming", 0.65},
	{regexp.MustCompile(`(?i)\bcommit\s+messages?\s+(?:should\s+)?(?:use|follow)\s+([\w./-]+)`), "commit_style", 0.65},
}

// RuleClassifier extracts preference candidates with a fixed pattern
// table. Cheap and deterministic; the in-process default.
type RuleClassifier struct {
	rules []prefRule
}

// NewRuleClassifier returns a classifier with the default rule table.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{rules: defaultRules}
}

// Classify matches the text against the rule table. Override phrasing
// anywhere in the text flags every candidate from it; emphasis phrasing
// adds a confidence bump, capped below 1.
func (rc *RuleClassifier) Classify(text string, recentContext []string) []PreferenceCandidate {
	lower := strings.ToLower(text)

	override := containsAny(lower, overridePhrases)
	bump := 0.0
	if containsAny(lower, emphasisPhrases) {
		bump = 0.10
	}

	var candidates []PreferenceCandidate
	seen := map[string]bool{}
	for _, rule := range rc.rules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil || seen[rule.key] {
			continue
		}
		seen[rule.key] = true

		conf := rule.confidence + bump
		if conf > 0.95 {
			conf = 0.95
		}
		candidates = append(candidates, PreferenceCandidate{
			Key:              rule.key,
			Value:            strings.Trim(m[1], ".,;:"),
			RawText:          strings.TrimSpace(text),
			Confidence:       conf,
			IsOverrideSignal: override,
		})
	}
	return candidates
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ActionPatternDetector derives preference candidates from repeated
// structured actions rather than text: the same PreferenceCandidate shape,
// fed by behavior instead of language. Currently it watches where test
// files get written; a directory that keeps receiving them becomes a
// test_location candidate at modest confidence.
type ActionPatternDetector struct {
	mu         sync.Mutex
	minRepeats int
	testDirs   map[string]map[string]int // projectID -> dir -> count
}

// NewActionPatternDetector returns a detector that emits after minRepeats
// observations of the same pattern (minimum 2).
func NewActionPatternDetector(minRepeats int) *ActionPatternDetector {
	if minRepeats < 2 {
		minRepeats = 2
	}
	return &ActionPatternDetector{
		minRepeats: minRepeats,
		testDirs:   make(map[string]map[string]int),
	}
}

// Observe records a tool action and returns any candidates the repetition
// now supports. Only file-writing tools contribute.
func (d *ActionPatternDetector) Observe(projectID, tool, filePath string) []PreferenceCandidate {
	if projectID == "" || filePath == "" {
		return nil
	}
	switch tool {
	case "Write", "Edit", "MultiEdit":
	default:
		return nil
	}
	if !looksLikeTestFile(filePath) {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(filePath)
	if d.testDirs[projectID] == nil {
		d.testDirs[projectID] = make(map[string]int)
	}
	d.testDirs[projectID][dir]++

	// Emit exactly once, at the threshold crossing.
	if d.testDirs[projectID][dir] != d.minRepeats {
		return nil
	}
	return []PreferenceCandidate{{
		Key:        "test_location",
		Value:      dir,
		RawText:    fmt.Sprintf("observed %d test files written to %s", d.minRepeats, dir),
		Confidence: 0.55,
	}}
}

// looksLikeTestFile matches the common test naming conventions.
func looksLikeTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasPrefix(base, "test_") ||
		strings.Contains(base, "_test.") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.")
}
