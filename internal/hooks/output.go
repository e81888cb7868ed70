package hooks

import (
	"encoding/json"
	"fmt"
	"os"
)

// SessionStartOutput is the JSON structure Claude Code expects on stdout
// from the SessionStart hook.
type SessionStartOutput struct {
	HookSpecificOutput struct {
		HookEventName     string `json:"hookEventName"`
		AdditionalContext string `json:"additionalContext"`
	} `json:"hookSpecificOutput"`
}

// WriteSessionStartOutput writes the SessionStart response to stdout.
func WriteSessionStartOutput(context string) error {
	out := SessionStartOutput{}
	out.HookSpecificOutput.HookEventName = "SessionStart"
	out.HookSpecificOutput.AdditionalContext = context
	return json.NewEncoder(os.Stdout).Encode(out)
}

// PreToolUseOutput is the JSON structure Claude Code expects on stdout
// from the PreToolUse hook when it wants to influence the tool call.
type PreToolUseOutput struct {
	HookSpecificOutput struct {
		HookEventName            string `json:"hookEventName"`
		PermissionDecision       string `json:"permissionDecision"`
		PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
	} `json:"hookSpecificOutput"`
}

// WritePreToolUseOutput writes a PreToolUse permission decision to stdout.
// decision is "allow", "deny", or "ask".
func WritePreToolUseOutput(decision, reason string) error {
	out := PreToolUseOutput{}
	out.HookSpecificOutput.HookEventName = "PreToolUse"
	out.HookSpecificOutput.PermissionDecision = decision
	out.HookSpecificOutput.PermissionDecisionReason = reason
	return json.NewEncoder(os.Stdout).Encode(out)
}

// ExitError logs to stderr and exits 0. Hooks must never crash the
// session they run inside of.
func ExitError(err error) {
	fmt.Fprintf(os.Stderr, "recall hook: %v\n", err)
	os.Exit(0)
}
