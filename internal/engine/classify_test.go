package engine

import (
	"testing"
)

func TestRuleClassifierTestLocation(t *testing.T) {
	rc := NewRuleClassifier()

	cands := rc.Classify("tests go in tests/unit from here", nil)
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}
	c := cands[0]
	if c.Key != "test_location" {
		t.Errorf("Key = %q, want test_location", c.Key)
	}
	if c.Value != "tests/unit" {
		t.Errorf("Value = %q, want tests/unit", c.Value)
	}
	if c.Confidence < 0.5 {
		t.Errorf("Confidence = %v, want >= 0.5", c.Confidence)
	}
	if c.IsOverrideSignal {
		t.Error("override flagged without override phrasing")
	}
}

func TestRuleClassifierOverridePhrasing(t *testing.T) {
	rc := NewRuleClassifier()

	cands := rc.Classify("actually, use spaces for indentation from now on", nil)
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}
	if cands[0].Key != "indent_style" {
		t.Errorf("Key = %q, want indent_style", cands[0].Key)
	}
	if cands[0].Value != "spaces" {
		t.Errorf("Value = %q, want spaces", cands[0].Value)
	}
	if !cands[0].IsOverrideSignal {
		t.Error("override phrasing not detected")
	}
}

func TestRuleClassifierEmphasisBump(t *testing.T) {
	rc := NewRuleClassifier()

	plain := rc.Classify("use tabs for indentation", nil)
	emphatic := rc.Classify("always remember: use tabs for indentation", nil)

	if len(plain) != 1 || len(emphatic) != 1 {
		t.Fatalf("candidates = %d/%d, want 1/1", len(plain), len(emphatic))
	}
	if emphatic[0].Confidence <= plain[0].Confidence {
		t.Errorf("emphasis did not raise confidence: %v vs %v",
			emphatic[0].Confidence, plain[0].Confidence)
	}
	if emphatic[0].Confidence > 0.95 {
		t.Errorf("Confidence = %v, want capped at 0.95", emphatic[0].Confidence)
	}
}

func TestRuleClassifierAvoidedTool(t *testing.T) {
	rc := NewRuleClassifier()

	cands := rc.Classify("never use npm in this repo", nil)
	if len(cands) == 0 {
		t.Fatal("no candidates")
	}
	if cands[0].Key != "avoided_tool" {
		t.Errorf("Key = %q, want avoided_tool", cands[0].Key)
	}
	if cands[0].Value != "npm" {
		t.Errorf("Value = %q, want npm", cands[0].Value)
	}
}

func TestRuleClassifierNoMatch(t *testing.T) {
	rc := NewRuleClassifier()

	if cands := rc.Classify("please fix the login bug", nil); len(cands) != 0 {
		t.Errorf("candidates = %v, want none", cands)
	}
}

func TestActionPatternDetector(t *testing.T) {
	d := NewActionPatternDetector(2)

	if cands := d.Observe("proj", "Write", "internal/store/db_test.go"); len(cands) != 0 {
		t.Errorf("first observation emitted: %v", cands)
	}

	cands := d.Observe("proj", "Write", "internal/store/records_test.go")
	if len(cands) != 1 {
		t.Fatalf("second observation: candidates = %d, want 1", len(cands))
	}
	if cands[0].Key != "test_location" {
		t.Errorf("Key = %q, want test_location", cands[0].Key)
	}
	if cands[0].Value != "internal/store" {
		t.Errorf("Value = %q, want internal/store", cands[0].Value)
	}

	// Emits exactly once, at the threshold crossing.
	if cands := d.Observe("proj", "Write", "internal/store/payload_test.go"); len(cands) != 0 {
		t.Errorf("third observation emitted again: %v", cands)
	}
}

func TestActionPatternDetectorIgnoresNonTests(t *testing.T) {
	d := NewActionPatternDetector(2)

	d.Observe("proj", "Write", "internal/store/db.go")
	if cands := d.Observe("proj", "Write", "internal/store/records.go"); len(cands) != 0 {
		t.Errorf("non-test writes emitted: %v", cands)
	}

	d.Observe("proj", "Read", "internal/store/db_test.go")
	if cands := d.Observe("proj", "Read", "internal/store/records_test.go"); len(cands) != 0 {
		t.Errorf("read-only tool emitted: %v", cands)
	}
}
