package capture

import "github.com/koios/shotframe/pkg/models"

// Resolve returns the effective viewport for a preset. The custom preset
// yields the custom values, any other preset yields its own size.
func Resolve(preset models.DevicePreset, customWidth, customHeight int) (int, int) {
	if preset.IsCustom() {
		return customWidth, customHeight
	}
	return preset.Width, preset.Height
}
