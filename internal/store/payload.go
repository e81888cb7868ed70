package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RecordType identifies the payload shape of a memory record.
type RecordType string

const (
	RecordToolUse           RecordType = "tool_use"
	RecordPreference        RecordType = "preference"
	RecordProjectKnowledge  RecordType = "project_knowledge"
	RecordCorrectionPattern RecordType = "correction_pattern"
)

// Valid reports whether the record type is one of the known variants.
func (t RecordType) Valid() bool {
	switch t {
	case RecordToolUse, RecordPreference, RecordProjectKnowledge, RecordCorrectionPattern:
		return true
	}
	return false
}

// Payload is the typed content of a memory record. The union is closed:
// one variant per record type, plus an opaque fallback so stored rows with
// payload shapes this build doesn't know survive a round trip unchanged.
type Payload interface {
	// SearchText returns the text the coarse keyword pre-filter and the
	// scorer's keyword boost match against.
	SearchText() string
}

// ToolUsePayload records a single tool action.
type ToolUsePayload struct {
	Tool         string `json:"tool"`
	InputSummary string `json:"input_summary"`
}

func (p ToolUsePayload) SearchText() string {
	return p.Tool + " " + p.InputSummary
}

// PreferencePayload records a user-stated preference. Confidence is the
// classifier's score at capture time, kept so later candidates for the
// same key can be compared against it.
type PreferencePayload struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

func (p PreferencePayload) SearchText() string {
	return p.Key + " " + p.Value + " " + p.RawText
}

// KnowledgePayload records a durable fact about a project.
type KnowledgePayload struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

func (p KnowledgePayload) SearchText() string {
	return p.Topic + " " + p.Content
}

// CorrectionPayload records a repeated original→corrected pattern.
// Frequency only increases.
type CorrectionPayload struct {
	OriginalForm  string `json:"original_form"`
	CorrectedForm string `json:"corrected_form"`
	Frequency     int    `json:"frequency"`
}

func (p CorrectionPayload) SearchText() string {
	return p.OriginalForm + " " + p.CorrectedForm
}

// OpaquePayload preserves a payload whose shape is unknown to this build.
type OpaquePayload struct {
	Raw json.RawMessage
}

func (p OpaquePayload) SearchText() string {
	return string(p.Raw)
}

// MarshalPayload serializes a payload to its stored JSON form.
func MarshalPayload(p Payload) (string, error) {
	if op, ok := p.(OpaquePayload); ok {
		return string(op.Raw), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// UnmarshalPayload deserializes a stored payload according to the record
// type. Unknown types fall back to the opaque variant rather than failing.
func UnmarshalPayload(t RecordType, data string) (Payload, error) {
	data = strings.TrimSpace(data)
	switch t {
	case RecordToolUse:
		var p ToolUsePayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal tool_use payload: %w", err)
		}
		return p, nil
	case RecordPreference:
		var p PreferencePayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal preference payload: %w", err)
		}
		return p, nil
	case RecordProjectKnowledge:
		var p KnowledgePayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal project_knowledge payload: %w", err)
		}
		return p, nil
	case RecordCorrectionPattern:
		var p CorrectionPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal correction_pattern payload: %w", err)
		}
		return p, nil
	default:
		return OpaquePayload{Raw: json.RawMessage(data)}, nil
	}
}
