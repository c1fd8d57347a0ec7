// Package config loads the YAML settings for a colour replacement run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"colour-replacer/internal/classify"
	"colour-replacer/internal/composite"
	"colour-replacer/internal/editor"
	"colour-replacer/internal/logger"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	// EnvPath names the environment variable holding a config file path.
	EnvPath     = "COLOUR_REPLACER_CONFIG"
	DefaultFile = "colour-replacer.yaml"
)

type Config struct {
	ImagePath   string        `yaml:"image_path"`
	Log         LogConfig     `yaml:"log"`
	Range       RangeConfig   `yaml:"range"`
	Replacement string        `yaml:"replacement"`
	Eraser      EraserConfig  `yaml:"eraser"`
	Keys        KeysConfig    `yaml:"keys"`
	Display     DisplayConfig `yaml:"display"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RangeConfig holds inclusive HSV bounds in OpenCV's 8-bit encoding.
type RangeConfig struct {
	Lower [3]int `yaml:"lower"`
	Upper [3]int `yaml:"upper"`
}

type EraserConfig struct {
	Radius       int           `yaml:"radius"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type KeysConfig struct {
	Reset   string `yaml:"reset"`
	Confirm string `yaml:"confirm"`
}

type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func Default() *Config {
	return &Config{
		ImagePath: "ManWithWhiteFerret.jpg",
		Log: LogConfig{
			Level: "info",
		},
		Range: RangeConfig{
			Lower: [3]int{0, 0, 100},
			Upper: [3]int{30, 70, 255},
		},
		Replacement: "#00ff00",
		Eraser: EraserConfig{
			Radius:       35,
			PollInterval: 10 * time.Millisecond,
		},
		Keys: KeysConfig{
			Reset:   "r",
			Confirm: "q",
		},
		Display: DisplayConfig{
			Width:  450,
			Height: 600,
		},
	}
}

// Load reads path over the defaults. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve picks the config file named by EnvPath, then DefaultFile in the
// working directory, then the built-in defaults. It also returns the path
// that was used, empty for defaults.
func Resolve() (*Config, string, error) {
	if path := os.Getenv(EnvPath); path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	if _, err := os.Stat(DefaultFile); err == nil {
		cfg, err := Load(DefaultFile)
		return cfg, DefaultFile, err
	}

	return Default(), "", nil
}

func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}

	for ch := 0; ch < 3; ch++ {
		lo, hi := c.Range.Lower[ch], c.Range.Upper[ch]
		limit := 255
		if ch == 0 {
			limit = 179
		}
		if lo < 0 || hi > limit {
			return fmt.Errorf("%w: range channel %d must lie in [0, %d]", ErrInvalidConfig, ch, limit)
		}
		if lo > hi {
			return fmt.Errorf("%w: range channel %d lower %d exceeds upper %d", ErrInvalidConfig, ch, lo, hi)
		}
	}

	if _, err := composite.ParseColour(c.Replacement); err != nil {
		return fmt.Errorf("%w: replacement: %v", ErrInvalidConfig, err)
	}

	if c.Eraser.Radius < 0 {
		return fmt.Errorf("%w: eraser.radius must not be negative", ErrInvalidConfig)
	}
	if c.Eraser.PollInterval <= 0 {
		return fmt.Errorf("%w: eraser.poll_interval must be positive", ErrInvalidConfig)
	}

	if c.Keys.Reset == "" || c.Keys.Confirm == "" {
		return fmt.Errorf("%w: keys.reset and keys.confirm are required", ErrInvalidConfig)
	}
	if strings.EqualFold(c.Keys.Reset, c.Keys.Confirm) {
		return fmt.Errorf("%w: keys.reset and keys.confirm must differ", ErrInvalidConfig)
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("%w: display size %dx%d", ErrInvalidConfig, c.Display.Width, c.Display.Height)
	}

	return nil
}

func (c *Config) ColourRange() classify.ColourRange {
	var r classify.ColourRange
	for ch := 0; ch < 3; ch++ {
		r.Lower[ch] = uint8(c.Range.Lower[ch])
		r.Upper[ch] = uint8(c.Range.Upper[ch])
	}
	return r
}

// ReplacementColour assumes Validate has passed.
func (c *Config) ReplacementColour() composite.Colour {
	colour, _ := composite.ParseColour(c.Replacement)
	return colour
}

func (c *Config) EditorOptions(panel string) editor.Options {
	return editor.Options{
		Radius:       c.Eraser.Radius,
		PollInterval: c.Eraser.PollInterval,
		ResetKey:     c.Keys.Reset,
		ConfirmKey:   c.Keys.Confirm,
		Panel:        panel,
	}
}
