package prompts

// gateTemplate is the intent-gate prompt. The oracle's reply is scanned
// for the literal verdict tokens, so the template spells out all three.
const gateTemplate = `You are the intent gate for a smart home assistant.

Current device states:
{{state}}

Message:
{{message}}

Decide whether this message asks the assistant to control a device or
inspect device state. Reply with exactly one word:
RESPOND - the message is a device command or device question for the assistant
IGNORE - the message is not addressed to the assistant
STOP - the user told the assistant to stop or be quiet

Answer:`

// Gate returns the intent-gate prompt for a message given the current
// device-state snapshot.
func Gate(state, message string) string {
	return Render(gateTemplate, map[string]string{
		"state":   state,
		"message": message,
	})
}
