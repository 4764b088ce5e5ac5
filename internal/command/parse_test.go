package command

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text      string
		wantName  Name
		wantValue string
	}{
		{"turn on the lights", TurnOn, ""},
		{"Turn On the desk lamp", TurnOn, ""},
		{"switch on the tv", TurnOn, ""},
		{"please turn the fan on", TurnOn, ""},
		{"turn off the fan", TurnOff, ""},
		{"shut off the sprinklers", TurnOff, ""},
		{"turn the hallway light off", TurnOff, ""},
		{"set brightness to 75", SetBrightness, "75"},
		{"dim to 40", SetBrightness, "40"},
		{"dim the bedroom light to 20", SetBrightness, "20"},
		{"brighten to 100", SetBrightness, "100"},
		{"set the brightness of the lamp to 55", SetBrightness, "55"},
		{"set the temperature to 72", SetTemperature, "72"},
		{"set the thermostat to 68", SetTemperature, "68"},
		{"set temp to 70", SetTemperature, "70"},
		{"set the color to blue", SetColor, "blue"},
		{"change the colour to red", SetColor, "red"},
		{"lock the front door", Lock, ""},
		{"unlock the front door", Unlock, ""},
		{"open the blinds", Open, ""},
		{"close the shades", Close, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.text, err)
			}
			if got.Name != tt.wantName {
				t.Errorf("name = %q, want %q", got.Name, tt.wantName)
			}
			if got.Value != tt.wantValue {
				t.Errorf("value = %q, want %q", got.Value, tt.wantValue)
			}
		})
	}
}

func TestParse_NoMatch(t *testing.T) {
	tests := []string{
		"xyzzy",
		"",
		"what's the weather like",
		"check the clock",     // "lock" must not match inside "clock"
		"openly discussing it", // "open" must not match inside "openly"
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			if !errors.Is(err, ErrNoCommand) {
				t.Fatalf("Parse(%q) err = %v, want ErrNoCommand", text, err)
			}
		})
	}
}

// Table order is priority: when two patterns match the same text, the
// earlier entry wins.
func TestParse_FirstMatchWins(t *testing.T) {
	got, err := Parse("turn on the lights and dim to 40")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != SetBrightness {
		t.Errorf("name = %q, want setBrightness (declared before turnOn)", got.Name)
	}
	if got.Value != "40" {
		t.Errorf("value = %q, want 40", got.Value)
	}
}

func TestParse_UnlockBeatsLock(t *testing.T) {
	got, err := Parse("unlock the back door please")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != Unlock {
		t.Errorf("name = %q, want unlock", got.Name)
	}
}

// The argument is the first non-empty capture group, so alternative
// phrasings of the same command share one table entry.
func TestParse_AlternativeCaptureGroups(t *testing.T) {
	for _, text := range []string{
		"set brightness to 40",
		"dim to 40",
		"brighten to 40",
	} {
		got, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if got.Name != SetBrightness || got.Value != "40" {
			t.Errorf("Parse(%q) = {%s %s}, want {setBrightness 40}", text, got.Name, got.Value)
		}
	}
}

// A non-numeric argument still parses; validation happens in the mapper.
func TestParse_NonNumericArgumentPassesThrough(t *testing.T) {
	got, err := Parse("dim to forty")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != SetBrightness || got.Value != "forty" {
		t.Errorf("got {%s %s}, want {setBrightness forty}", got.Name, got.Value)
	}
}
