package frame

import (
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcConstantBufferByteSize(t *testing.T) {
	assert.Equal(t, uint64(256), CalcConstantBufferByteSize(1))
	assert.Equal(t, uint64(256), CalcConstantBufferByteSize(144))
	assert.Equal(t, uint64(256), CalcConstantBufferByteSize(256))
	assert.Equal(t, uint64(1280), CalcConstantBufferByteSize(1280))
	assert.Equal(t, uint64(1536), CalcConstantBufferByteSize(1281))
}

func TestUploadBufferStride(t *testing.T) {
	dev := headless.New(headless.Options{Width: 4, Height: 4})

	cb, err := NewUploadBuffer[metadata.ObjectConstants](dev, "objects", 5, true)
	require.NoError(t, err)
	defer cb.Close()
	assert.Equal(t, uint64(256), cb.Stride())
	assert.Equal(t, uint64(256*5), cb.Buffer().Size())
	assert.Equal(t, uint64(512), cb.Offset(2))

	sb, err := NewUploadBuffer[metadata.MaterialData](dev, "materials", 8, false)
	require.NoError(t, err)
	defer sb.Close()
	assert.Equal(t, uint64(112), sb.Stride())
}

func TestUploadBufferCopyData(t *testing.T) {
	dev := headless.New(headless.Options{Width: 4, Height: 4})
	cb, err := NewUploadBuffer[metadata.ObjectConstants](dev, "objects", 3, true)
	require.NoError(t, err)
	defer cb.Close()

	want := metadata.ObjectConstants{
		World:         math.NewMat4Translation(math.NewVec3(1, 2, 3)),
		TexTransform:  math.NewMat4Scale(math.NewVec3(8, 8, 1)),
		MaterialIndex: 7,
	}
	cb.CopyData(2, want)
	assert.Equal(t, want, cb.Element(2))
	assert.Equal(t, metadata.ObjectConstants{}, cb.Element(1))
	assert.Equal(t, 1, cb.Writes())

	assert.Panics(t, func() { cb.CopyData(3, want) })
	assert.Panics(t, func() { cb.CopyData(-1, want) })
}

func TestUploadBufferCloseIsIdempotent(t *testing.T) {
	dev := headless.New(headless.Options{Width: 4, Height: 4})
	cb, err := NewUploadBuffer[metadata.PassConstants](dev, "pass", 3, true)
	require.NoError(t, err)
	buf := cb.Buffer().(*headless.Buffer)

	cb.Close()
	cb.Close()
	assert.True(t, buf.Released())
	assert.Nil(t, cb.Buffer())
}

func TestUploadBufferRejectsEmpty(t *testing.T) {
	dev := headless.New(headless.Options{Width: 4, Height: 4})
	_, err := NewUploadBuffer[metadata.PassConstants](dev, "pass", 0, true)
	assert.Error(t, err)
}
