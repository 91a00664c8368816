package capture

import (
	"errors"
	"testing"

	"github.com/koios/shotframe/pkg/models"
)

func mustPreset(t *testing.T, id string) models.DevicePreset {
	t.Helper()
	p, ok := models.PresetByID(id)
	if !ok {
		t.Fatalf("preset %s not in catalog", id)
	}
	return p
}

func TestResolve(t *testing.T) {
	t.Run("preset", func(t *testing.T) {
		w, h := Resolve(mustPreset(t, "tablet"), 500, 600)
		if w != 768 || h != 1024 {
			t.Errorf("got %dx%d, want 768x1024", w, h)
		}
	})

	t.Run("custom", func(t *testing.T) {
		w, h := Resolve(mustPreset(t, models.CustomPresetID), 500, 600)
		if w != 500 || h != 600 {
			t.Errorf("got %dx%d, want 500x600", w, h)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		p := mustPreset(t, "mobile")
		w1, h1 := Resolve(p, 1, 2)
		w2, h2 := Resolve(p, 1, 2)
		if w1 != w2 || h1 != h2 {
			t.Errorf("Resolve not idempotent: %dx%d vs %dx%d", w1, h1, w2, h2)
		}
	})
}

func TestNewForm(t *testing.T) {
	f := NewForm()
	if f.Preset.ID != "desktop" {
		t.Errorf("default preset = %s, want desktop", f.Preset.ID)
	}
	if f.CustomWidth != 1280 || f.CustomHeight != 800 {
		t.Errorf("custom defaults = %dx%d, want 1280x800", f.CustomWidth, f.CustomHeight)
	}
	if f.IsValid() {
		t.Error("empty URL should not be valid")
	}
}

func TestForm_SelectPresetSeedsCustom(t *testing.T) {
	f := NewForm()
	f.SelectPreset(mustPreset(t, "mobile"))

	if f.CustomWidth != 390 || f.CustomHeight != 844 {
		t.Errorf("custom fields = %dx%d, want 390x844", f.CustomWidth, f.CustomHeight)
	}

	f.SelectPreset(mustPreset(t, models.CustomPresetID))
	if f.CustomWidth != 390 || f.CustomHeight != 844 {
		t.Errorf("selecting custom must keep seeded values, got %dx%d", f.CustomWidth, f.CustomHeight)
	}

	w, h := f.Dimensions()
	if w != 390 || h != 844 {
		t.Errorf("Dimensions() = %dx%d, want 390x844", w, h)
	}
}

func TestForm_IsValid(t *testing.T) {
	custom := mustPreset(t, models.CustomPresetID)

	tests := []struct {
		name string
		form Form
		want bool
	}{
		{"preset with url", Form{URL: "example.com", Preset: models.DefaultPreset()}, true},
		{"empty url", Form{Preset: models.DefaultPreset()}, false},
		{"bad url", Form{URL: "not a url", Preset: models.DefaultPreset()}, false},
		{"preset ignores bad custom", Form{URL: "example.com", Preset: models.DefaultPreset(), CustomWidth: 0}, true},
		{"custom valid", Form{URL: "example.com", Preset: custom, CustomWidth: 800, CustomHeight: 600}, true},
		{"custom zero", Form{URL: "example.com", Preset: custom, CustomWidth: 0, CustomHeight: 600}, false},
		{"custom too tall", Form{URL: "example.com", Preset: custom, CustomWidth: 800, CustomHeight: 3841}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.form.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
			if valid := len(tt.form.Validate()) == 0; valid != tt.want {
				t.Errorf("Validate() disagrees with IsValid(): %v", tt.form.Validate())
			}
		})
	}
}

func TestForm_ValidateCodes(t *testing.T) {
	f := Form{URL: "", Preset: mustPreset(t, models.CustomPresetID), CustomWidth: 0, CustomHeight: 5000}
	errs := f.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}

	codes := map[string]string{}
	for _, e := range errs {
		codes[e.Field] = e.Code
	}
	if codes["url"] != "required" {
		t.Errorf("url code = %q", codes["url"])
	}
	if codes["custom_width"] != "required" {
		t.Errorf("custom_width code = %q", codes["custom_width"])
	}
	if codes["custom_height"] != "out_of_range" {
		t.Errorf("custom_height code = %q", codes["custom_height"])
	}
}

func TestForm_Request(t *testing.T) {
	t.Run("normalizes and resolves", func(t *testing.T) {
		f := Form{URL: "example.com", Preset: models.DefaultPreset()}
		req, err := f.Request()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.URL != "https://example.com" || req.Width != 1440 || req.Height != 900 {
			t.Errorf("Request() = %+v", req)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		f := Form{URL: "nope", Preset: models.DefaultPreset()}
		_, err := f.Request()
		if !errors.Is(err, ErrInvalidForm) {
			t.Errorf("expected ErrInvalidForm, got %v", err)
		}
	})
}
