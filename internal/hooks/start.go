package hooks

import (
	"encoding/json"
	"net/url"
)

func handleStart(client *Client, input *HookInput) {
	// Register the session first so later hooks have state to update.
	if input.SessionID != "" {
		body, err := json.Marshal(map[string]string{
			"session_id": input.SessionID,
			"project":    input.CWD,
		})
		if err == nil {
			client.Post("/api/sessions/init", body)
		}
	}

	params := url.Values{}
	if input.SessionID != "" {
		params.Set("session_id", input.SessionID)
	}
	if input.CWD != "" {
		params.Set("project", input.CWD)
	}

	data, err := client.Get("/api/context?" + params.Encode())
	if err != nil {
		// Degrade gracefully, an empty context beats a broken session
		WriteSessionStartOutput("")
		return
	}

	var resp struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		WriteSessionStartOutput("")
		return
	}

	WriteSessionStartOutput(resp.Context)
}
