package prompts

// confirmationTemplate turns an execution result into the user-facing
// reply. Variables are the original command text, the execution result,
// and the aggregate device state after the command ran.
const confirmationTemplate = `You are a smart home assistant. The user said:
{{command}}

The command finished with this result:
{{result}}

Device states now:
{{state}}

Write one short, friendly sentence confirming what happened, naming the
device and its new state. Reply with that sentence only.`

// Confirmation returns the completion-oracle prompt for a finished
// command.
func Confirmation(command, result, state string) string {
	return Render(confirmationTemplate, map[string]string{
		"command": command,
		"result":  result,
		"state":   state,
	})
}

// failureTemplate renders the always-produced error confirmation. It is
// deliberately model-free: when a command fails we do not spend another
// oracle call, we template the apology directly.
const failureTemplate = `Sorry, I couldn't do that: {{reason}}.`

// Failure returns the user-facing text for a failed command.
func Failure(reason string) string {
	return Render(failureTemplate, map[string]string{"reason": reason})
}
