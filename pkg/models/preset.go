package models

// Icon names the glyph shown next to a device preset
type Icon string

const (
	IconMonitor    Icon = "monitor"
	IconTablet     Icon = "tablet"
	IconSmartphone Icon = "smartphone"
	IconSettings   Icon = "settings"
)

// CustomPresetID is the sentinel preset whose dimensions come from the user
const CustomPresetID = "custom"

// DevicePreset is a named viewport size offered as a shortcut to manual entry
type DevicePreset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Icon   Icon   `json:"icon"`
}

// IsCustom reports whether the preset defers to user-supplied dimensions
func (p DevicePreset) IsCustom() bool {
	return p.ID == CustomPresetID
}

var presets = [...]DevicePreset{
	{ID: "desktop-large", Name: "Desktop (1920)", Width: 1920, Height: 1080, Icon: IconMonitor},
	{ID: "desktop", Name: "Desktop (1440)", Width: 1440, Height: 900, Icon: IconMonitor},
	{ID: "tablet", Name: "Tablet (768)", Width: 768, Height: 1024, Icon: IconTablet},
	{ID: "mobile", Name: "Mobile (390)", Width: 390, Height: 844, Icon: IconSmartphone},
	{ID: CustomPresetID, Name: "Custom", Width: 0, Height: 0, Icon: IconSettings},
}

const defaultPresetIndex = 1

// Presets returns the ordered preset catalog. The slice is a copy.
func Presets() []DevicePreset {
	out := make([]DevicePreset, len(presets))
	copy(out, presets[:])
	return out
}

// DefaultPreset returns the preset selected when a session starts
func DefaultPreset() DevicePreset {
	return presets[defaultPresetIndex]
}

// PresetByID looks up a preset in the catalog
func PresetByID(id string) (DevicePreset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return DevicePreset{}, false
}
