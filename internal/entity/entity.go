// Package entity maintains the in-memory directory of controllable
// devices: discovery through the device cloud gateway, type
// classification, name-based target resolution, and the background
// poller that keeps the directory fresh.
package entity

import (
	"encoding/json"
	"fmt"
	"maps"
)

// DeviceType is the closed set of device categories the classifier can
// assign. Unknown is the fallback, never an error.
type DeviceType string

const (
	TypeSwitch         DeviceType = "switch"
	TypeLight          DeviceType = "light"
	TypeThermostat     DeviceType = "thermostat"
	TypeLock           DeviceType = "lock"
	TypeMotionSensor   DeviceType = "motionSensor"
	TypeContactSensor  DeviceType = "contactSensor"
	TypePresenceSensor DeviceType = "presenceSensor"
	TypeMediaPlayer    DeviceType = "mediaPlayer"
	TypeWindowShade    DeviceType = "windowShade"
	TypeGarageDoor     DeviceType = "garageDoor"
	TypeFan            DeviceType = "fan"
	TypePowerMeter     DeviceType = "powerMeter"
	TypeBattery        DeviceType = "battery"
	TypeUnknown        DeviceType = "unknown"
)

// Entity is a controllable or observable device in the registry.
// Type is derived from Capabilities at discovery time and is recomputed
// on every pass rather than carried over.
type Entity struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         DeviceType     `json:"type"`
	Capabilities []string       `json:"capabilities"`
	State        map[string]any `json:"state,omitempty"`
}

// HasCapability reports whether the device declared the capability id.
func (e Entity) HasCapability(id string) bool {
	for _, c := range e.Capabilities {
		if c == id {
			return true
		}
	}
	return false
}

// StateString renders the opaque state payload as a compact JSON object
// with sorted keys, or "unknown" when no state has been seen yet.
func (e Entity) StateString() string {
	if len(e.State) == 0 {
		return "unknown"
	}
	b, err := json.Marshal(e.State)
	if err != nil {
		return fmt.Sprintf("%v", e.State)
	}
	return string(b)
}

// clone returns a copy whose maps and slices are independent of the
// registry's internal storage.
func (e Entity) clone() Entity {
	out := e
	out.Capabilities = append([]string(nil), e.Capabilities...)
	out.State = maps.Clone(e.State)
	return out
}
