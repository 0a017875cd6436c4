package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromFileCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gones.json")

	c, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.False(t, c.IsLoaded(), "a freshly-created default config should not report IsLoaded")
	assert.Equal(t, 2, c.Window.Scale)

	c2, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.True(t, c2.IsLoaded(), "expected IsLoaded once the file exists on disk")
}

func TestSaveToFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "gones.json")

	c := New()
	c.Window.Scale = 4
	c.Audio.Volume = 0.3
	assert.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 4, loaded.Window.Scale)
	assert.Equal(t, float32(0.3), loaded.Audio.Volume)
}

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	c := New()
	c.Audio.Volume = 5.0
	c.Window.Scale = -1
	c.Emulation.SaveStateSlots = 0
	c.validate()

	assert.Equal(t, float32(0.8), c.Audio.Volume, "Audio.Volume should clamp to the default")
	assert.Equal(t, 1, c.Window.Scale, "Window.Scale should clamp to 1")
	assert.Equal(t, 10, c.Emulation.SaveStateSlots, "Emulation.SaveStateSlots should clamp to the default")
}

func TestWindowResolutionScalesNESResolution(t *testing.T) {
	c := New()
	c.Window.Scale = 3
	w, h := c.WindowResolution()
	assert.Equal(t, 768, w)
	assert.Equal(t, 720, h)
}
