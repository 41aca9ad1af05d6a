package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}

func TestAssetManagerIndexesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "opaque.vert.spv"), spirvHeader, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	assert.Equal(t, 1, am.Count())
	res, err := am.LoadAsset("opaque.vert.spv", metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	blob := res.Data.(*metadata.ShaderBlob)
	assert.Equal(t, "vert", blob.Stage)

	_, err = am.LoadAsset("missing.frag.spv", metadata.ResourceTypeShader, nil)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = am.LoadAsset("opaque.vert.spv", metadata.ResourceTypeTexture, nil)
	assert.Error(t, err)
}

func TestAssetManagerPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sky.frag.spv"), spirvHeader, 0o644))
	assert.Eventually(t, func() bool {
		_, ok := am.Lookup("sky.frag.spv")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAssetManagerMissingDirectory(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(filepath.Join(t.TempDir(), "nope")))
	defer am.Shutdown()
	assert.Zero(t, am.Count())
}
