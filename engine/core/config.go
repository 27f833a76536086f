package core

import (
	"bytes"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

const (
	MaxFramesInFlight = 4
	MinRenderScale    = 0.3
	MaxRenderScale    = 1.0
)

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
}

type RendererConfig struct {
	FramesInFlight     uint32  `toml:"frames_in_flight"`
	RenderScale        float32 `toml:"render_scale"`
	FenceTimeoutMS     uint64  `toml:"fence_timeout_ms"`
	AcquireTimeoutMS   uint64  `toml:"acquire_timeout_ms"`
	ImmediateTimeoutNS uint64  `toml:"immediate_timeout_ns"`
	Validation         bool    `toml:"validation"`
	// Offscreen draw target size. Zero means the window size.
	DrawWidth      uint32 `toml:"draw_width"`
	DrawHeight     uint32 `toml:"draw_height"`
	FramePoolSets  uint32 `toml:"frame_pool_sets"`
	GlobalPoolSets uint32 `toml:"global_pool_sets"`
}

func (r RendererConfig) FenceTimeout() time.Duration {
	return time.Duration(r.FenceTimeoutMS) * time.Millisecond
}

func (r RendererConfig) AcquireTimeout() time.Duration {
	return time.Duration(r.AcquireTimeoutMS) * time.Millisecond
}

func (r RendererConfig) ImmediateTimeout() time.Duration {
	return time.Duration(r.ImmediateTimeoutNS)
}

type AssetsConfig struct {
	ShaderDir string `toml:"shader_dir"`
	HotReload bool   `toml:"hot_reload"`
}

type LogConfig struct {
	Level LogLevel `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Lumen",
			Width:  1700,
			Height: 900,
			PosX:   100,
			PosY:   100,
		},
		Renderer: RendererConfig{
			FramesInFlight:     2,
			RenderScale:        1.0,
			FenceTimeoutMS:     1000,
			AcquireTimeoutMS:   1000,
			ImmediateTimeoutNS: 9999999999,
			FramePoolSets:      1000,
			GlobalPoolSets:     10,
		},
		Assets: AssetsConfig{
			ShaderDir: "shaders/compiled",
			HotReload: true,
		},
		Log: LogConfig{
			Level: InfoLevel,
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			LogInfo("no configuration found at %s, using defaults", path)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading configuration %s", path)
	}
	if err := cfg.Decode(data); err != nil {
		return nil, errors.Wrapf(err, "loading configuration %s", path)
	}
	return cfg, nil
}

// Decode applies the TOML document over the receiver and validates the result.
func (c *Config) Decode(data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return errors.Mark(errors.Wrap(err, "decoding toml"), ErrInvalidConfig)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Mark(errors.Newf("window size must be non zero, got %dx%d", c.Window.Width, c.Window.Height), ErrInvalidConfig)
	}
	r := c.Renderer
	if r.FramesInFlight == 0 || r.FramesInFlight > MaxFramesInFlight {
		return errors.Mark(errors.Newf("frames_in_flight must be in [1, %d], got %d", MaxFramesInFlight, r.FramesInFlight), ErrInvalidConfig)
	}
	if r.RenderScale <= 0 || r.RenderScale > MaxRenderScale {
		return errors.Mark(errors.Newf("render_scale must be in (0, 1], got %f", r.RenderScale), ErrInvalidConfig)
	}
	if r.FenceTimeoutMS == 0 || r.AcquireTimeoutMS == 0 || r.ImmediateTimeoutNS == 0 {
		return errors.Mark(errors.New("timeouts must be non zero"), ErrInvalidConfig)
	}
	if r.FramePoolSets == 0 || r.GlobalPoolSets == 0 {
		return errors.Mark(errors.New("descriptor pool sizes must be non zero"), ErrInvalidConfig)
	}
	switch c.Log.Level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return errors.Mark(errors.Newf("unknown log level %q", c.Log.Level), ErrInvalidConfig)
	}
	return nil
}

// DrawSize returns the offscreen draw target size, defaulting to the window size.
func (c *Config) DrawSize() (uint32, uint32) {
	w, h := c.Renderer.DrawWidth, c.Renderer.DrawHeight
	if w == 0 || h == 0 {
		return c.Window.Width, c.Window.Height
	}
	return w, h
}
