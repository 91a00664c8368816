package capture

import "github.com/koios/shotframe/pkg/models"

const (
	DefaultCustomWidth  = 1280
	DefaultCustomHeight = 800
)

// Form is the user-editable input of a capture session
type Form struct {
	URL          string              `json:"url"`
	Preset       models.DevicePreset `json:"preset"`
	CustomWidth  int                 `json:"custom_width"`
	CustomHeight int                 `json:"custom_height"`
}

// NewForm returns a form with the default preset and custom size
func NewForm() Form {
	return Form{
		Preset:       models.DefaultPreset(),
		CustomWidth:  DefaultCustomWidth,
		CustomHeight: DefaultCustomHeight,
	}
}

// SelectPreset changes the preset. Picking a sized preset also copies its
// size into the custom fields so a later switch to custom starts from it.
func (f *Form) SelectPreset(p models.DevicePreset) {
	f.Preset = p
	if !p.IsCustom() && p.Width > 0 && p.Height > 0 {
		f.CustomWidth = p.Width
		f.CustomHeight = p.Height
	}
}

// Dimensions resolves the viewport the form currently describes
func (f Form) Dimensions() (int, int) {
	return Resolve(f.Preset, f.CustomWidth, f.CustomHeight)
}

// IsValid is true iff the URL is valid and, for the custom preset, both custom dimensions are in range
func (f Form) IsValid() bool {
	if !ValidateURL(f.URL) {
		return false
	}
	if f.Preset.IsCustom() && !ValidateDimensions(f.CustomWidth, f.CustomHeight) {
		return false
	}
	return true
}

// Validate returns one error per offending field, nil when the form is valid
func (f Form) Validate() ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, validateURLField(f.URL)...)
	if f.Preset.IsCustom() {
		errs = append(errs, validateDimensionField("custom_width", "Width", f.CustomWidth)...)
		errs = append(errs, validateDimensionField("custom_height", "Height", f.CustomHeight)...)
	}
	return errs
}

// Request builds the capture request for a valid form
func (f Form) Request() (models.CaptureRequest, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return models.CaptureRequest{}, errs
	}
	width, height := f.Dimensions()
	return models.CaptureRequest{
		URL:    NormalizeURL(f.URL),
		Width:  width,
		Height: height,
	}, nil
}
