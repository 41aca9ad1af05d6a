package loaders

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// TextureParams controls how an image is turned into a texture.
type TextureParams struct {
	GenerateMips bool
}

type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	genMips := true
	if p, ok := params.(*TextureParams); ok && p != nil {
		genMips = p.GenerateMips
	}
	data := FromImage(img, genMips)

	var size uint64
	for _, m := range data.Mips {
		size += uint64(len(m))
	}
	return &metadata.Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + format,
		FullPath: path,
		DataSize: size,
		Data:     data,
	}, nil
}

func (tl *TextureLoader) Unload(*metadata.Resource) error {
	return nil
}

// FromImage converts img to RGBA8 and, if asked, appends a box-filtered mip
// chain down to 1x1.
func FromImage(img image.Image, generateMips bool) *metadata.TextureData {
	b := img.Bounds()
	base := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)

	out := &metadata.TextureData{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Mips:   [][]byte{base.Pix},
	}
	if !generateMips {
		return out
	}

	prev := base
	for w, h := b.Dx(), b.Dy(); w > 1 || h > 1; {
		w, h = max(w/2, 1), max(h/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		out.Mips = append(out.Mips, next.Pix)
		prev = next
	}
	return out
}

// MipCount is the length of a full mip chain for a width x height image.
func MipCount(width, height uint32) uint32 {
	n := uint32(1)
	for width > 1 || height > 1 {
		width, height = max(width/2, 1), max(height/2, 1)
		n++
	}
	return n
}

// Solid returns a 1x1 texture of a single color.
func Solid(c color.RGBA) *metadata.TextureData {
	return &metadata.TextureData{
		Width:  1,
		Height: 1,
		Mips:   [][]byte{{c.R, c.G, c.B, c.A}},
	}
}

// Checker returns a size x size two-color checkerboard with mips.
func Checker(size, cells int, a, b color.RGBA) *metadata.TextureData {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := max(size/cells, 1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return FromImage(img, true)
}
