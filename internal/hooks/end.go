package hooks

func handleEnd(client *Client, input *HookInput) {
	// SessionEnd and Stop both close out the hook session. The server
	// treats a repeat completion as a no-op.
	handleStop(client, input)
}
