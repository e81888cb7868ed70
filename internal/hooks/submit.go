package hooks

import "encoding/json"

func handleSubmit(client *Client, input *HookInput) {
	if input.Prompt == "" || input.SessionID == "" {
		return
	}

	// Resume the session if the start hook never fired (e.g. the server
	// came up mid-session).
	initBody, err := json.Marshal(map[string]string{
		"session_id": input.SessionID,
		"project":    input.CWD,
	})
	if err == nil {
		client.Post("/api/sessions/init", initBody)
	}

	body, err := json.Marshal(map[string]string{
		"prompt":  input.Prompt,
		"project": input.CWD,
	})
	if err != nil {
		ExitError(err)
		return
	}

	if _, err := client.Post("/api/sessions/"+input.SessionID+"/prompts", body); err != nil {
		ExitError(err)
		return
	}
}
