package models

import "testing"

func TestPresets_Catalog(t *testing.T) {
	want := []struct {
		id            string
		width, height int
	}{
		{"desktop-large", 1920, 1080},
		{"desktop", 1440, 900},
		{"tablet", 768, 1024},
		{"mobile", 390, 844},
		{"custom", 0, 0},
	}

	got := Presets()
	if len(got) != len(want) {
		t.Fatalf("expected %d presets, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Width != w.width || got[i].Height != w.height {
			t.Errorf("preset %d = %+v, want %s %dx%d", i, got[i], w.id, w.width, w.height)
		}
	}
}

func TestPresets_ReturnsCopy(t *testing.T) {
	p := Presets()
	p[0].Width = 1

	if Presets()[0].Width != 1920 {
		t.Error("mutating the returned slice changed the catalog")
	}
}

func TestDefaultPreset(t *testing.T) {
	d := DefaultPreset()
	if d.ID != "desktop" || d.Width != 1440 || d.Height != 900 {
		t.Errorf("DefaultPreset() = %+v, want desktop 1440x900", d)
	}
	if d.IsCustom() {
		t.Error("default preset must not be custom")
	}
}

func TestPresetByID(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		p, ok := PresetByID("mobile")
		if !ok {
			t.Fatal("mobile not found")
		}
		if p.Icon != IconSmartphone {
			t.Errorf("Icon = %q, want smartphone", p.Icon)
		}
	})

	t.Run("custom sentinel", func(t *testing.T) {
		p, ok := PresetByID(CustomPresetID)
		if !ok || !p.IsCustom() {
			t.Fatalf("custom preset lookup = %+v, %v", p, ok)
		}
		if p.Width != 0 || p.Height != 0 {
			t.Errorf("custom preset should be 0x0, got %dx%d", p.Width, p.Height)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, ok := PresetByID("watch"); ok {
			t.Error("expected unknown preset to be missing")
		}
	})
}
