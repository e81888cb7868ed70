package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultSearchTTL = 300 * time.Second

// guardMode reads the enforcement mode from the environment. The hook
// binary is config-free on purpose; the same RECALL_ variables the server
// reads steer it.
func guardMode() string {
	switch mode := os.Getenv("RECALL_HOOKS_ENFORCE"); mode {
	case "block", "warn", "off":
		return mode
	default:
		return "warn"
	}
}

func guardTTL() time.Duration {
	if v := os.Getenv("RECALL_HOOKS_SEARCHTTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultSearchTTL
}

// handleGuard gates file-writing tools on a recent memory search. A
// session that edits without ever consulting its memory repeats the
// mistakes the memory exists to prevent.
func handleGuard(client *Client, input *HookInput) {
	mode := guardMode()
	if mode == "off" || !input.IsWriteTool() || input.SessionID == "" {
		return
	}

	data, err := client.Get("/api/sessions/" + input.SessionID)
	if err != nil {
		// Unknown session or server trouble never blocks the edit.
		return
	}

	var sess struct {
		LastSearchAt *int64 `json:"last_search_at"`
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return
	}

	if sess.LastSearchAt != nil {
		age := time.Since(time.UnixMilli(*sess.LastSearchAt))
		if age <= guardTTL() {
			return
		}
	}

	reason := fmt.Sprintf(
		"No recent memory search in this session. Try searching recall first, e.g. %q.",
		suggestedQuery(input))

	if mode == "block" {
		WritePreToolUseOutput("deny", reason)
		return
	}
	fmt.Fprintf(os.Stderr, "recall: %s\n", reason)
}

// suggestedQuery builds a plausible search query from the tool target, so
// the nudge is actionable instead of generic.
func suggestedQuery(input *HookInput) string {
	if path := input.FilePath(); path != "" {
		base := filepath.Base(path)
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i]
		}
		return base
	}
	return strings.ToLower(input.ToolName) + " conventions"
}
