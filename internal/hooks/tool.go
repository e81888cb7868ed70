package hooks

import "encoding/json"

func handleTool(client *Client, input *HookInput) {
	if input.ShouldSkipTool() || input.ToolName == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"tool":          input.ToolName,
		"input_summary": input.InputSummary(),
	})
	if err != nil {
		ExitError(err)
		return
	}

	body, err := json.Marshal(map[string]json.RawMessage{
		"type":       json.RawMessage(`"tool_use"`),
		"session_id": mustJSON(input.SessionID),
		"project":    mustJSON(input.CWD),
		"file_path":  mustJSON(input.FilePath()),
		"payload":    payload,
	})
	if err != nil {
		ExitError(err)
		return
	}

	if _, err := client.Post("/api/events", body); err != nil {
		ExitError(err)
		return
	}
}

func mustJSON(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
