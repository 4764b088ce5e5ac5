// Package runtime declares the contracts between the command pipeline
// and the outer conversational runtime: the intent gate, the completion
// oracle, context providers, and the registrable action shape.
package runtime

import "context"

// Decision is the intent gate's verdict on an incoming message. The
// zero value is Ignore so an undecipherable verdict never triggers an
// action.
type Decision int

const (
	// Ignore means the message is not addressed to the agent.
	Ignore Decision = iota
	// Respond means the pipeline should handle the message.
	Respond
	// Stop means the user told the agent to stand down.
	Stop
)

func (d Decision) String() string {
	switch d {
	case Respond:
		return "RESPOND"
	case Stop:
		return "STOP"
	default:
		return "IGNORE"
	}
}

// IntentOracle decides whether an utterance is addressed to the agent,
// given the current device-state snapshot.
type IntentOracle interface {
	ShouldRespond(ctx context.Context, stateSnapshot, message string) (Decision, error)
}

// Completer produces natural-language text from a rendered prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextProvider contributes a plain-text block to the model's
// context window. Empty output means nothing to contribute.
type ContextProvider interface {
	GetContext(ctx context.Context, userMessage string) (string, error)
}

// Response is the envelope an action returns to the caller.
type Response struct {
	Text   string `json:"text"`
	Action string `json:"action"`
	Source string `json:"source"`
}

// Action is a handler the outer runtime routes messages to. CanHandle
// is a cheap keyword check; Handle runs the full pipeline. A nil
// Response with a nil error means the action chose not to act.
type Action interface {
	Name() string
	CanHandle(text string) bool
	Handle(ctx context.Context, text, userID string) (*Response, error)
}
