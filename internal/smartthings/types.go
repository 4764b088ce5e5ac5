package smartthings

// Device is a device record as returned by the device cloud.
type Device struct {
	DeviceID   string      `json:"deviceId"`
	Name       string      `json:"name"`
	Label      string      `json:"label,omitempty"`
	RoomID     string      `json:"roomId,omitempty"`
	LocationID string      `json:"locationId,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// DisplayName returns the user-facing label, falling back to the
// manufacturer name when no label is set.
func (d Device) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// CapabilityIDs returns the capability ids reported across all components,
// main component first, in reported order.
func (d Device) CapabilityIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(comp Component) {
		for _, c := range comp.Capabilities {
			if !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}
	for _, comp := range d.Components {
		if comp.ID == "main" {
			add(comp)
		}
	}
	for _, comp := range d.Components {
		if comp.ID != "main" {
			add(comp)
		}
	}
	return ids
}

// Component is a grouping of capabilities within a device.
type Component struct {
	ID           string          `json:"id"`
	Label        string          `json:"label,omitempty"`
	Capabilities []CapabilityRef `json:"capabilities,omitempty"`
}

// CapabilityRef names a capability a component supports.
type CapabilityRef struct {
	ID      string `json:"id"`
	Version int    `json:"version,omitempty"`
}

// AttributeValue is a single attribute reading within a device status.
type AttributeValue struct {
	Value     any    `json:"value"`
	Unit      string `json:"unit,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CapabilityStatus maps attribute name to its current reading.
type CapabilityStatus map[string]AttributeValue

// ComponentStatus maps capability id to its attribute readings.
type ComponentStatus map[string]CapabilityStatus

// DeviceStatus is the component/capability/attribute state tree returned
// by the status endpoint.
type DeviceStatus struct {
	Components map[string]ComponentStatus `json:"components"`
}

// MainAttribute returns the value of an attribute on the main component.
func (s *DeviceStatus) MainAttribute(capability, attribute string) (any, bool) {
	if s == nil {
		return nil, false
	}
	main, ok := s.Components["main"]
	if !ok {
		return nil, false
	}
	attrs, ok := main[capability]
	if !ok {
		return nil, false
	}
	attr, ok := attrs[attribute]
	if !ok {
		return nil, false
	}
	return attr.Value, true
}

// Flatten collapses the main component into attribute → value pairs.
// Attribute names collide across capabilities rarely enough that the
// flattened view is useful as an entity's opaque state.
func (s *DeviceStatus) Flatten() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	main, ok := s.Components["main"]
	if !ok {
		return out
	}
	for _, attrs := range main {
		for name, attr := range attrs {
			if attr.Value != nil {
				out[name] = attr.Value
			}
		}
	}
	return out
}

// DeviceHealth reports device cloud connectivity for a device.
type DeviceHealth struct {
	DeviceID        string `json:"deviceId"`
	State           string `json:"state"` // ONLINE, OFFLINE, UNKNOWN
	LastUpdatedDate string `json:"lastUpdatedDate,omitempty"`
}

// Online reports whether the cloud considers the device reachable.
func (h DeviceHealth) Online() bool {
	return h.State == "ONLINE"
}

// Command is a single capability command for a device.
type Command struct {
	Component  string `json:"component,omitempty"`
	Capability string `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}

// Scene is a user-defined scene that executes as a unit.
type Scene struct {
	SceneID    string `json:"sceneId"`
	SceneName  string `json:"sceneName"`
	SceneIcon  string `json:"sceneIcon,omitempty"`
	LocationID string `json:"locationId,omitempty"`
}

// Room groups devices within a location.
type Room struct {
	RoomID     string `json:"roomId"`
	LocationID string `json:"locationId,omitempty"`
	Name       string `json:"name"`
}

// Links carries pagination cursors on list responses.
type Links struct {
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// PagedDevices is the device list envelope.
type PagedDevices struct {
	Items []Device `json:"items"`
	Links Links    `json:"_links,omitempty"`
}

// PagedScenes is the scene list envelope.
type PagedScenes struct {
	Items []Scene `json:"items"`
	Links Links   `json:"_links,omitempty"`
}

// PagedRooms is the room list envelope.
type PagedRooms struct {
	Items []Room `json:"items"`
	Links Links  `json:"_links,omitempty"`
}
