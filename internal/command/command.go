// Package command turns a raw utterance into a vendor-shaped device
// command in two deterministic steps: an ordered regex table extracts
// the command name and its single argument, then a closed mapping
// table produces the capability/command/arguments triple. No model is
// involved on this path; anything the tables don't recognize is an
// error, never a guess.
package command

import "errors"

// Name identifies one utterance-level command. The set is closed: the
// parser can only produce these and the mapper only accepts them.
type Name string

const (
	TurnOn         Name = "turnOn"
	TurnOff        Name = "turnOff"
	SetBrightness  Name = "setBrightness"
	SetTemperature Name = "setTemperature"
	SetColor       Name = "setColor"
	Lock           Name = "lock"
	Unlock         Name = "unlock"
	Open           Name = "open"
	Close          Name = "close"
)

// Parsed is the parser's output: a command name and at most one
// captured argument. Value is empty for commands that take none.
type Parsed struct {
	Name  Name
	Value string
}

var (
	// ErrNoCommand means no pattern in the table matched the text.
	ErrNoCommand = errors.New("no command matched")

	// ErrUnknownCommand means the name is outside the closed enum.
	// Seeing it for parser output indicates the two tables drifted.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrBadArgument means the captured argument failed validation,
	// e.g. a non-numeric level or an unknown color name.
	ErrBadArgument = errors.New("bad command argument")
)
