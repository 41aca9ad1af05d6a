package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Renderer.FrameResources)
	assert.Equal(t, uint32(2048), cfg.Renderer.ShadowMapSize)
	assert.Equal(t, float32(2.5), cfg.Ssao.BlurSigma)
	assert.Equal(t, 3, cfg.Ssao.BlurCount)
	assert.True(t, cfg.Renderer.ShowDebugQuads)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "lumen.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	src := `
[window]
width = 800
height = 600

[renderer]
backend = "headless"
frame_resources = 2

[ssao]
blur_sigma = 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, BackendHeadless, cfg.Renderer.Backend)
	assert.Equal(t, 2, cfg.Renderer.FrameResources)
	assert.Equal(t, float32(1.5), cfg.Ssao.BlurSigma)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Ssao.BlurCount)
	assert.Equal(t, "Lumen", cfg.Window.Name)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window\nwidth = "), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Renderer.FrameResources = 0
	cfg.Ssao.BlurSigma = 0
	cfg.Ssao.FadeEnd = cfg.Ssao.FadeStart
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"window size", "frame_resources", "blur_sigma", "fade_end"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Camera.MoveSpeed = 4
	data, err := cfg.Encode()
	require.NoError(t, err)
	out := Default()
	require.NoError(t, Parse(data, out))
	assert.Equal(t, cfg, out)
}

func TestWatchDeliversReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ssao]\nblur_count = 3\n"), 0o644))
	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[ssao]\nblur_count = 1\n"), 0o644))
	// a write may surface as several events, the last one carries the new value
	deadline := time.After(3 * time.Second)
	for got := 0; got != 1; {
		select {
		case cfg := <-w.Reloads():
			got = cfg.Ssao.BlurCount
		case <-deadline:
			t.Fatal("no reload delivered")
		}
	}

	live := Default()
	live.ApplyLive(&Config{Ssao: Ssao{BlurCount: 1}, Log: Log{Level: "debug"}})
	assert.Equal(t, 1, live.Ssao.BlurCount)
	assert.Equal(t, "debug", live.Log.Level)
	assert.Equal(t, 3, live.Renderer.FrameResources)
}

func TestBlurSigmaMustFitTheBlurKernel(t *testing.T) {
	cfg := Default()
	cfg.Ssao.BlurSigma = 2.5
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MaxBlurRadius, BlurRadius(cfg.Ssao.BlurSigma))

	cfg.Ssao.BlurSigma = 3
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blur_sigma")

	path := filepath.Join(t.TempDir(), "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ssao]\nblur_sigma = 3.0\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWatchSkipsInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ssao]\nblur_count = 3\n"), 0o644))
	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[ssao]\nblur_sigma = 3.0\n"), 0o644))
	select {
	case cfg := <-w.Reloads():
		t.Fatalf("invalid reload delivered: blur_sigma %g", cfg.Ssao.BlurSigma)
	case <-time.After(300 * time.Millisecond):
	}
}
