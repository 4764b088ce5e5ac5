package command

import (
	"fmt"
	"regexp"
)

// patterns is the parse table. Declaration order is priority: the
// first matching entry wins even when a later one would also match, so
// argument-carrying forms sit above the bare toggles and unlock sits
// above lock. Matching is case-insensitive and unanchored. Alternations
// within one pattern carry their own capture group; the first non-empty
// group becomes the argument.
var patterns = []struct {
	name Name
	re   *regexp.Regexp
}{
	{SetBrightness, regexp.MustCompile(`(?i)\bbrightness\b.*?\bto\b\s+(\w+)|\bdim\b.*?\bto\b\s+(\w+)|\bbrighten\b.*?\bto\b\s+(\w+)`)},
	{SetTemperature, regexp.MustCompile(`(?i)\b(?:temperature|temp|thermostat)\b.*?\bto\b\s+(\w+)`)},
	{SetColor, regexp.MustCompile(`(?i)\bcolou?r\b.*?\bto\b\s+(\w+)`)},
	{Unlock, regexp.MustCompile(`(?i)\bunlock\b`)},
	{Lock, regexp.MustCompile(`(?i)\block\b`)},
	{Open, regexp.MustCompile(`(?i)\bopen\b`)},
	{Close, regexp.MustCompile(`(?i)\bclose\b`)},
	{TurnOff, regexp.MustCompile(`(?i)\b(?:turn|switch|power|shut)\s+off\b|\bturn\b.*?\boff\b`)},
	{TurnOn, regexp.MustCompile(`(?i)\b(?:turn|switch|power)\s+on\b|\bturn\b.*?\bon\b`)},
}

// Parse extracts a command from free text. It fails with ErrNoCommand
// when nothing in the table matches.
func Parse(text string) (Parsed, error) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		parsed := Parsed{Name: p.name}
		for _, group := range m[1:] {
			if group != "" {
				parsed.Value = group
				break
			}
		}
		return parsed, nil
	}
	return Parsed{}, fmt.Errorf("%w: %q", ErrNoCommand, text)
}
