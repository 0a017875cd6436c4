// Package config manages persisted emulator settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Audio     AudioConfig     `json:"audio"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration.
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Resizable  bool `json:"resizable"`
	Scale      int  `json:"scale"` // NES resolution multiplier
}

// VideoConfig contains video rendering configuration.
type VideoConfig struct {
	VSync       bool   `json:"vsync"`
	AspectRatio string `json:"aspect_ratio"` // "4:3", "16:9", "original"
	Filter      string `json:"filter"`       // "nearest", "linear"
}

// AudioConfig contains audio configuration.
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sample_rate"`
	BufferSize int     `json:"buffer_size"`
	Volume     float32 `json:"volume"`
}

// InputConfig contains input configuration.
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
	Player2Keys KeyMapping `json:"player2_keys"`
}

// KeyMapping represents keyboard key mappings for one NES controller.
// Values are ebiten key names (e.g. "W", "ArrowUp", "Enter").
type KeyMapping struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// EmulationConfig contains emulation-specific settings.
type EmulationConfig struct {
	FrameRate      float64 `json:"frame_rate"`
	SaveStateSlots int     `json:"save_state_slots"`
	AutoSave       bool    `json:"auto_save"`
}

// DebugConfig contains debugging and tracing options.
type DebugConfig struct {
	ShowFPS       bool   `json:"show_fps"`
	EnableLogging bool   `json:"enable_logging"`
	LogLevel      string `json:"log_level"` // "DEBUG", "INFO", "WARN", "ERROR"
	CPUTracing    bool   `json:"cpu_tracing"`
}

// PathsConfig contains file and directory paths.
type PathsConfig struct {
	ROMs       string `json:"roms"`
	SaveData   string `json:"save_data"`
	SaveStates string `json:"save_states"`
	Logs       string `json:"logs"`
}

// New creates a configuration populated with default values.
func New() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      800,
			Height:     600,
			Fullscreen: false,
			Resizable:  true,
			Scale:      2,
		},
		Video: VideoConfig{
			VSync:       true,
			AspectRatio: "4:3",
			Filter:      "nearest",
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			BufferSize: 1024,
			Volume:     0.8,
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up: "W", Down: "S", Left: "A", Right: "D",
				A: "K", B: "J", Start: "Enter", Select: "ShiftLeft",
			},
			Player2Keys: KeyMapping{
				Up: "ArrowUp", Down: "ArrowDown", Left: "ArrowLeft", Right: "ArrowRight",
				A: "Slash", B: "Period", Start: "ShiftRight", Select: "ControlRight",
			},
		},
		Emulation: EmulationConfig{
			FrameRate:      60.0988,
			SaveStateSlots: 10,
			AutoSave:       false,
		},
		Debug: DebugConfig{
			ShowFPS:       false,
			EnableLogging: false,
			LogLevel:      "INFO",
			CPUTracing:    false,
		},
		Paths: PathsConfig{
			ROMs:       "./roms",
			SaveData:   "./saves",
			SaveStates: "./states",
			Logs:       "./logs",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is not
// an error: the default config is written to path and returned instead.
func LoadFromFile(path string) (*Config, error) {
	c := New()
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	c.validate()
	if err := c.createDirectories(); err != nil {
		return nil, fmt.Errorf("create config directories: %w", err)
	}

	c.loaded = true
	return c, nil
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration back to the path it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// validate clamps out-of-range values to sane defaults rather than
// rejecting the whole file over one bad field.
func (c *Config) validate() {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window.Width, c.Window.Height = 800, 600
	}
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.BufferSize <= 0 {
		c.Audio.BufferSize = 1024
	}
	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		c.Audio.Volume = 0.8
	}
	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0988
	}
	if c.Emulation.SaveStateSlots <= 0 {
		c.Emulation.SaveStateSlots = 10
	}
}

func (c *Config) createDirectories() error {
	for _, dir := range []string{c.Paths.ROMs, c.Paths.SaveData, c.Paths.SaveStates, c.Paths.Logs} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NESResolution returns the native NES resolution.
func (c *Config) NESResolution() (int, int) {
	return 256, 240
}

// WindowResolution returns the window resolution based on scale.
func (c *Config) WindowResolution() (int, int) {
	w, h := c.NESResolution()
	return w * c.Window.Scale, h * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from an existing file.
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetDefaultConfigPath returns the conventional location for the emulator's
// configuration file.
func GetDefaultConfigPath() string {
	return "./config/gones.json"
}
