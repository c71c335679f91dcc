package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Audio backends
const (
	BackendBeep = "beep"
	BackendOto  = "oto"
	BackendNone = "none"
)

// Front ends
const (
	ModeTUI      = "tui"
	ModeHeadless = "headless"
	ModeConsole  = "console"
)

// Config represents the application configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	OSC     OSCConfig     `yaml:"osc"`
	Control ControlConfig `yaml:"control"`
	Boards  []BoardFile   `yaml:"boards"`
	UI      UIConfig      `yaml:"ui"`

	// Board file format written by save: "tagged" or "legacy"
	StoreFormat string `yaml:"store_format,omitempty"`
}

// AudioConfig represents audio output settings
type AudioConfig struct {
	Backend    string  `yaml:"backend"`
	SampleRate int     `yaml:"sample_rate"`
	BufferMS   int     `yaml:"buffer_ms"`
	DuckLevel  float64 `yaml:"duck_level"` // gain applied while ducking, 0..1
}

// OSCConfig represents the control surface link
type OSCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Target  string `yaml:"target"`           // host:port outbound messages go to
	Listen  string `yaml:"listen,omitempty"` // inbound address, empty disables
}

// ControlConfig represents the TCP control server
type ControlConfig struct {
	Listen string `yaml:"listen,omitempty"` // empty disables
}

// BoardFile is a board opened at startup
type BoardFile struct {
	Name string `yaml:"name,omitempty"`
	Path string `yaml:"path"`
}

// UIConfig represents front end settings
type UIConfig struct {
	Mode    string `yaml:"mode"`
	LogFile string `yaml:"log_file,omitempty"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    BackendBeep,
			SampleRate: 44100,
			BufferMS:   100,
			DuckLevel:  0.25,
		},
		OSC: OSCConfig{
			Enabled: false,
			Target:  "127.0.0.1:9000",
			Listen:  ":8000",
		},
		Control: ControlConfig{
			Listen: "localhost:6601",
		},
		UI: UIConfig{
			Mode:    ModeTUI,
			LogFile: filepath.Join(os.TempDir(), "casterboard.log"),
		},
		StoreFormat: "tagged",
	}
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case BackendBeep, BackendOto, BackendNone:
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}

	if c.Audio.Backend != BackendNone && c.Audio.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.Audio.SampleRate)
	}

	if c.Audio.BufferMS <= 0 {
		c.Audio.BufferMS = DefaultConfig().Audio.BufferMS
	}

	if c.Audio.DuckLevel < 0 || c.Audio.DuckLevel > 1 {
		return fmt.Errorf("duck_level must be between 0 and 1, got %g", c.Audio.DuckLevel)
	}

	if err := c.SetMode(c.UI.Mode); err != nil {
		return err
	}

	if c.OSC.Enabled {
		if _, _, err := net.SplitHostPort(c.OSC.Target); err != nil {
			return fmt.Errorf("invalid osc target %q: %w", c.OSC.Target, err)
		}
	}

	for i, b := range c.Boards {
		if b.Path == "" {
			return fmt.Errorf("board %d has no path", i)
		}
	}

	switch c.StoreFormat {
	case "", "tagged", "legacy":
	default:
		return fmt.Errorf("unknown store_format %q", c.StoreFormat)
	}

	return nil
}

// SetMode sets the front end by name
func (c *Config) SetMode(mode string) error {
	mode = strings.ToLower(mode)
	switch mode {
	case "":
		c.UI.Mode = ModeTUI
	case ModeTUI, ModeHeadless, ModeConsole:
		c.UI.Mode = mode
	default:
		return fmt.Errorf("unknown mode %q (want tui, headless, or console)", mode)
	}
	return nil
}

// SetOSCTarget enables OSC output to host:port
func (c *Config) SetOSCTarget(target string) error {
	if _, _, err := net.SplitHostPort(target); err != nil {
		return fmt.Errorf("invalid osc target %q: %w", target, err)
	}
	c.OSC.Target = target
	c.OSC.Enabled = true
	return nil
}

// AddBoard adds a board file to open at startup, ignoring duplicates
func (c *Config) AddBoard(path string) {
	for _, b := range c.Boards {
		if b.Path == path {
			return
		}
	}
	c.Boards = append(c.Boards, BoardFile{Path: path})
}
