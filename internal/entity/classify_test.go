package entity

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		capabilities []string
		want         DeviceType
	}{
		{"bare switch", []string{"switch"}, TypeSwitch},
		{"dimmable plug is still a switch", []string{"switch", "switchLevel"}, TypeSwitch},
		{"full color set is a light", []string{"switch", "switchLevel", "colorControl", "colorTemperature"}, TypeLight},
		{"light with extras", []string{"switch", "switchLevel", "colorControl", "colorTemperature", "healthCheck"}, TypeLight},
		{"color without level is not a light", []string{"switch", "colorControl", "colorTemperature"}, TypeSwitch},
		{"thermostat", []string{"thermostatMode", "temperatureMeasurement"}, TypeThermostat},
		{"thermostat mode alone is not enough", []string{"thermostatMode"}, TypeUnknown},
		{"lock", []string{"lock"}, TypeLock},
		{"lock beats switch in declaration order", []string{"switch", "lock"}, TypeLock},
		{"motion sensor", []string{"motionSensor"}, TypeMotionSensor},
		{"contact sensor", []string{"contactSensor"}, TypeContactSensor},
		{"presence sensor", []string{"presenceSensor"}, TypePresenceSensor},
		{"media player needs playback and volume", []string{"mediaPlayback", "audioVolume"}, TypeMediaPlayer},
		{"playback alone is unknown", []string{"mediaPlayback"}, TypeUnknown},
		{"window shade", []string{"windowShade"}, TypeWindowShade},
		{"garage door", []string{"garageDoorControl"}, TypeGarageDoor},
		{"fan", []string{"fanSpeed"}, TypeFan},
		{"power meter", []string{"powerMeter"}, TypePowerMeter},
		{"battery", []string{"battery"}, TypeBattery},
		{"battery sensor with motion takes motion first", []string{"battery", "motionSensor"}, TypeMotionSensor},
		{"empty set", nil, TypeUnknown},
		{"unrecognized capability", []string{"weirdVendorThing"}, TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.capabilities)
			if got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.capabilities, got, tt.want)
			}
		})
	}
}

func TestClassify_FirstDeclaredRuleWins(t *testing.T) {
	// A device satisfying both the fan rule and the switch rule must get
	// fan, which is declared earlier.
	got := Classify([]string{"switch", "fanSpeed"})
	if got != TypeFan {
		t.Errorf("Classify(switch+fanSpeed) = %q, want fan", got)
	}
}
