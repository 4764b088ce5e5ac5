package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reevehome/reeve/internal/smartthings"
)

type argKind int

const (
	argNone argKind = iota
	argInt
	argColor
)

type deviceMapping struct {
	capability string
	command    string
	arg        argKind
}

// mapTable binds each command name to exactly one vendor capability
// and command. The table is closed: names outside it are rejected.
// Note open/close is a single static binding to windowShade, so doors
// controlled by garageDoorControl are not reachable through it.
var mapTable = map[Name]deviceMapping{
	TurnOn:         {"switch", "on", argNone},
	TurnOff:        {"switch", "off", argNone},
	SetBrightness:  {"switchLevel", "setLevel", argInt},
	SetTemperature: {"thermostatCoolingSetpoint", "setCoolingSetpoint", argInt},
	SetColor:       {"colorControl", "setColor", argColor},
	Lock:           {"lock", "lock", argNone},
	Unlock:         {"lock", "unlock", argNone},
	Open:           {"windowShade", "open", argNone},
	Close:          {"windowShade", "close", argNone},
}

// colors maps accepted color names to hue/saturation on the vendor's
// 0-100 scale.
var colors = map[string]struct{ hue, saturation float64 }{
	"red":     {0, 100},
	"orange":  {8, 100},
	"yellow":  {16, 100},
	"green":   {33, 100},
	"cyan":    {50, 100},
	"blue":    {66, 100},
	"purple":  {77, 100},
	"magenta": {83, 100},
	"pink":    {91, 100},
	"white":   {0, 0},
}

// MapCommand translates a parsed command into the vendor command shape.
// The target device id is bound later by the resolver, not here.
// Unknown names fail with ErrUnknownCommand; malformed arguments fail
// with ErrBadArgument and are never coerced.
func MapCommand(name Name, value string) (smartthings.Command, error) {
	m, ok := mapTable[name]
	if !ok {
		return smartthings.Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, string(name))
	}

	cmd := smartthings.Command{
		Component:  "main",
		Capability: m.capability,
		Command:    m.command,
	}

	switch m.arg {
	case argInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return smartthings.Command{}, fmt.Errorf("%w: %q is not a number", ErrBadArgument, value)
		}
		cmd.Arguments = []any{n}
	case argColor:
		c, ok := colors[strings.ToLower(strings.TrimSpace(value))]
		if !ok {
			return smartthings.Command{}, fmt.Errorf("%w: unknown color %q", ErrBadArgument, value)
		}
		cmd.Arguments = []any{map[string]any{"hue": c.hue, "saturation": c.saturation}}
	}

	return cmd, nil
}
