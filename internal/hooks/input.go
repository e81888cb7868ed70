package hooks

import "encoding/json"

// HookInput is the JSON that Claude Code sends on stdin to hook handlers.
// All fields are optional; different events populate different subsets.
type HookInput struct {
	SessionID     string `json:"session_id"`
	CWD           string `json:"cwd"`
	HookEventName string `json:"hook_event_name"`

	// SessionStart
	Source string `json:"source,omitempty"`
	Model  string `json:"model,omitempty"`

	// UserPromptSubmit
	Prompt string `json:"prompt,omitempty"`

	// PreToolUse / PostToolUse
	ToolName     string          `json:"tool_name,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	ToolInput    json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`

	// SessionEnd
	Reason string `json:"reason,omitempty"`
}

// skipTools are meta-tools that generate noise, not useful memory.
var skipTools = map[string]bool{
	"TodoRead":  true,
	"TodoWrite": true,
	"Thinking":  true,
}

// ShouldSkipTool returns true if this tool use should not be recorded.
func (h *HookInput) ShouldSkipTool() bool {
	return skipTools[h.ToolName]
}

// writeTools are the tools the guard hook gates: anything that mutates
// files. Read-only tools never need a prior memory search.
var writeTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// IsWriteTool returns true if this tool mutates files.
func (h *HookInput) IsWriteTool() bool {
	return writeTools[h.ToolName]
}

// FilePath extracts the target file path from the tool input, if any.
func (h *HookInput) FilePath() string {
	if len(h.ToolInput) == 0 {
		return ""
	}
	var fields struct {
		FilePath     string `json:"file_path"`
		Path         string `json:"path"`
		NotebookPath string `json:"notebook_path"`
	}
	if err := json.Unmarshal(h.ToolInput, &fields); err != nil {
		return ""
	}
	switch {
	case fields.FilePath != "":
		return fields.FilePath
	case fields.NotebookPath != "":
		return fields.NotebookPath
	default:
		return fields.Path
	}
}

// InputSummary renders a short, storable form of the tool input.
func (h *HookInput) InputSummary() string {
	const maxSummary = 200
	s := string(h.ToolInput)
	if len(s) > maxSummary {
		s = s[:maxSummary]
	}
	return s
}
