package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the engine looks for its configuration.
const DefaultPath = "lumen.toml"

// MaxBlurRadius is the largest blur radius the blur shader unrolls.
const MaxBlurRadius = 5

// BlurRadius is the half width of the Gaussian kernel for sigma.
func BlurRadius(sigma float32) int {
	return int(math.Ceil(float64(2 * sigma)))
}

type Window struct {
	Name   string `toml:"name"`
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Log struct {
	Level string `toml:"level"`
}

type Renderer struct {
	// Backend is "vulkan" or "headless".
	Backend        string `toml:"backend"`
	FrameResources int    `toml:"frame_resources"`
	ShadowMapSize  uint32 `toml:"shadow_map_size"`
	VSync          bool   `toml:"vsync"`
	ShowDebugQuads bool   `toml:"show_debug_quads"`
	// HeadlessFrames is how many frames the headless backend renders before exiting.
	HeadlessFrames int `toml:"headless_frames"`
}

type Ssao struct {
	BlurSigma       float32 `toml:"blur_sigma"`
	BlurCount       int     `toml:"blur_count"`
	OcclusionRadius float32 `toml:"occlusion_radius"`
	FadeStart       float32 `toml:"fade_start"`
	FadeEnd         float32 `toml:"fade_end"`
	SurfaceEpsilon  float32 `toml:"surface_epsilon"`
}

type Camera struct {
	Position         [3]float32 `toml:"position"`
	MoveSpeed        float32    `toml:"move_speed"`
	MouseSensitivity float32    `toml:"mouse_sensitivity"`
}

type Assets struct {
	Dir string `toml:"dir"`
}

type Config struct {
	Window   Window   `toml:"window"`
	Log      Log      `toml:"log"`
	Renderer Renderer `toml:"renderer"`
	Ssao     Ssao     `toml:"ssao"`
	Camera   Camera   `toml:"camera"`
	Assets   Assets   `toml:"assets"`
}

const (
	BackendVulkan   = "vulkan"
	BackendHeadless = "headless"
)

func Default() *Config {
	return &Config{
		Window: Window{
			Name:   "Lumen",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Log: Log{Level: "info"},
		Renderer: Renderer{
			Backend:        BackendVulkan,
			FrameResources: 3,
			ShadowMapSize:  2048,
			VSync:          true,
			ShowDebugQuads: true,
			HeadlessFrames: 120,
		},
		Ssao: Ssao{
			BlurSigma:       2.5,
			BlurCount:       3,
			OcclusionRadius: 0.5,
			FadeStart:       0.2,
			FadeEnd:         1.0,
			SurfaceEpsilon:  0.05,
		},
		Camera: Camera{
			Position:         [3]float32{0, 2, -15},
			MoveSpeed:        10,
			MouseSensitivity: 0.25,
		},
		Assets: Assets{Dir: "assets"},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML into cfg. Keys absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be non-zero", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.Backend != BackendVulkan && c.Renderer.Backend != BackendHeadless {
		errs = append(errs, fmt.Errorf("unknown renderer backend %q", c.Renderer.Backend))
	}
	if c.Renderer.FrameResources < 1 {
		errs = append(errs, fmt.Errorf("frame_resources must be at least 1, got %d", c.Renderer.FrameResources))
	}
	if c.Renderer.ShadowMapSize == 0 {
		errs = append(errs, errors.New("shadow_map_size must be non-zero"))
	}
	if c.Ssao.BlurSigma <= 0 {
		errs = append(errs, fmt.Errorf("ssao blur_sigma must be positive, got %g", c.Ssao.BlurSigma))
	} else if r := BlurRadius(c.Ssao.BlurSigma); r > MaxBlurRadius {
		errs = append(errs, fmt.Errorf("ssao blur_sigma %g needs radius %d, at most %d is supported", c.Ssao.BlurSigma, r, MaxBlurRadius))
	}
	if c.Ssao.BlurCount < 0 {
		errs = append(errs, fmt.Errorf("ssao blur_count must not be negative, got %d", c.Ssao.BlurCount))
	}
	if c.Ssao.FadeEnd <= c.Ssao.FadeStart {
		errs = append(errs, fmt.Errorf("ssao fade_end %g must exceed fade_start %g", c.Ssao.FadeEnd, c.Ssao.FadeStart))
	}
	return errors.Join(errs...)
}

// Encode writes cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
