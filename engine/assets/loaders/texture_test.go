package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipCount(t *testing.T) {
	assert.Equal(t, uint32(1), MipCount(1, 1))
	assert.Equal(t, uint32(9), MipCount(256, 256))
	assert.Equal(t, uint32(9), MipCount(256, 16))
}

func TestFromImageBuildsMipChain(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	data := FromImage(img, true)
	require.Len(t, data.Mips, int(MipCount(8, 4)))
	assert.Len(t, data.Mips[0], 8*4*4)
	assert.Len(t, data.Mips[1], 4*2*4)
	assert.Len(t, data.Mips[len(data.Mips)-1], 4)
	assert.Equal(t, byte(200), data.Mips[len(data.Mips)-1][0])
}

func TestTextureLoaderDecodesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	res, err := (&TextureLoader{}).Load(path, metadata.ResourceTypeTexture, &TextureParams{GenerateMips: false})
	require.NoError(t, err)
	data := res.Data.(*metadata.TextureData)
	assert.Equal(t, uint32(4), data.Width)
	assert.Len(t, data.Mips, 1)
	assert.Equal(t, []byte{255, 0, 0, 255}, data.Mips[0][:4])
}

func TestParseSPIRV(t *testing.T) {
	valid := []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	blob, err := ParseSPIRV("opaque.frag.spv", valid)
	require.NoError(t, err)
	assert.Equal(t, "frag", blob.Stage)
	assert.Equal(t, spirvMagic, blob.Words[0])

	_, err = ParseSPIRV("broken.vert.spv", []byte{1, 2, 3})
	assert.Error(t, err)
	bad := append([]byte(nil), valid...)
	bad[0] = 0
	_, err = ParseSPIRV("bad.vert.spv", bad)
	assert.Error(t, err)
}
