package entity

// classificationRule pairs a device type with the full capability set a
// device must report for the rule to match.
type classificationRule struct {
	deviceType DeviceType
	required   []string
}

// classificationRules is evaluated top to bottom; the first rule whose
// entire required set is present wins. Order matters: the generic switch
// rule sits last so a bare switch capability cannot shadow richer
// devices, and light requires the full color set so dimmable plugs stay
// classified as switches.
var classificationRules = []classificationRule{
	{TypeLight, []string{"switch", "switchLevel", "colorControl", "colorTemperature"}},
	{TypeThermostat, []string{"thermostatMode", "temperatureMeasurement"}},
	{TypeLock, []string{"lock"}},
	{TypeMotionSensor, []string{"motionSensor"}},
	{TypeContactSensor, []string{"contactSensor"}},
	{TypePresenceSensor, []string{"presenceSensor"}},
	{TypeMediaPlayer, []string{"mediaPlayback", "audioVolume"}},
	{TypeWindowShade, []string{"windowShade"}},
	{TypeGarageDoor, []string{"garageDoorControl"}},
	{TypeFan, []string{"fanSpeed"}},
	{TypePowerMeter, []string{"powerMeter"}},
	{TypeBattery, []string{"battery"}},
	{TypeSwitch, []string{"switch"}},
}

// Classify derives the device type from its reported capabilities.
// Never fails; a device matching no rule is TypeUnknown.
func Classify(capabilities []string) DeviceType {
	reported := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		reported[c] = true
	}

	for _, rule := range classificationRules {
		if hasAll(reported, rule.required) {
			return rule.deviceType
		}
	}
	return TypeUnknown
}

func hasAll(reported map[string]bool, required []string) bool {
	for _, r := range required {
		if !reported[r] {
			return false
		}
	}
	return true
}
