package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// Handle reads HookInput from the given reader, dispatches to the handler
// for the event, and writes any output to stdout.
func Handle(event string, stdin io.Reader) {
	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil {
		// Stdin may be empty for some events
		if event == "start" {
			WriteSessionStartOutput("")
			return
		}
		ExitError(fmt.Errorf("decode stdin: %w", err))
		return
	}

	client := NewClient()

	// A down server never blocks the session. Start still emits its
	// empty-context output; the guard allows; everything else goes quiet.
	if !client.Healthy() {
		switch event {
		case "start":
			WriteSessionStartOutput("")
		case "guard":
			// no output means no objection
		}
		return
	}

	switch event {
	case "start":
		handleStart(client, &input)
	case "submit":
		handleSubmit(client, &input)
	case "tool":
		handleTool(client, &input)
	case "guard":
		handleGuard(client, &input)
	case "stop":
		handleStop(client, &input)
	case "end":
		handleEnd(client, &input)
	default:
		ExitError(fmt.Errorf("unknown hook event: %s", event))
	}
}
