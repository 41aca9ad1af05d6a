package systems

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image/color"
	"strings"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The number of slots in the shader-visible descriptor heap. */
	MaxTextureCount int
}

// CubeFaceSuffixes are appended to a cube map name to find its six faces,
// in +X, -X, +Y, -Y, +Z, -Z order.
var CubeFaceSuffixes = [6]string{"_px", "_nx", "_py", "_ny", "_pz", "_nz"}

type textureEntry struct {
	name    string
	texture gpu.Texture
	// owned textures are released by the system on shutdown
	owned bool
}

type reservation struct {
	base  metadata.TextureHandle
	count int
}

/**
 * @brief Owns the layout of the descriptor heap. Textures are registered in
 * order and their heap index is the handle materials and passes use.
 */
type TextureSystem struct {
	Config *TextureSystemConfig

	heap     gpu.DescriptorHeap
	entries  []textureEntry
	lookup   map[string]metadata.TextureHandle
	reserved map[string]reservation

	// sub systems
	device       gpu.Device
	jobSystem    *JobSystem
	assetManager *assets.AssetManager
}

func NewTextureSystem(config *TextureSystemConfig, device gpu.Device, js *JobSystem, am *assets.AssetManager) (*TextureSystem, error) {
	if config.MaxTextureCount <= 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	heap, err := device.CreateDescriptorHeap(config.MaxTextureCount)
	if err != nil {
		return nil, err
	}
	return &TextureSystem{
		Config:       config,
		heap:         heap,
		entries:      make([]textureEntry, 0, config.MaxTextureCount),
		lookup:       make(map[string]metadata.TextureHandle),
		reserved:     make(map[string]reservation),
		device:       device,
		jobSystem:    js,
		assetManager: am,
	}, nil
}

func (ts *TextureSystem) Heap() gpu.DescriptorHeap {
	return ts.heap
}

// Count is the number of heap slots in use, reserved ones included.
func (ts *TextureSystem) Count() int {
	return len(ts.entries)
}

func (ts *TextureSystem) claim(name string, tex gpu.Texture, owned bool) (metadata.TextureHandle, error) {
	if _, ok := ts.lookup[name]; ok {
		return metadata.InvalidHandle, fmt.Errorf("texture %q is already registered", name)
	}
	if len(ts.entries) >= ts.Config.MaxTextureCount {
		return metadata.InvalidHandle, fmt.Errorf("texture system cannot hold %q: all %d heap slots are used", name, ts.Config.MaxTextureCount)
	}
	h := metadata.TextureHandle(len(ts.entries))
	ts.entries = append(ts.entries, textureEntry{name: name, texture: tex, owned: owned})
	ts.lookup[name] = h
	return h, nil
}

/**
 * @brief Places tex in the next free heap slot. The system takes ownership.
 * @return The heap index of the texture.
 */
func (ts *TextureSystem) Register(name string, tex gpu.Texture) (metadata.TextureHandle, error) {
	h, err := ts.claim(name, tex, true)
	if err != nil {
		return h, err
	}
	if err := ts.heap.SetTexture(int(h), tex); err != nil {
		return metadata.InvalidHandle, err
	}
	return h, nil
}

/**
 * @brief Reserves count consecutive heap slots, filled later with Set or
 * SetNull. Used for render targets that are recreated on resize.
 * @return The heap index of the first slot.
 */
func (ts *TextureSystem) Reserve(name string, count int) (metadata.TextureHandle, error) {
	if count <= 0 {
		return metadata.InvalidHandle, fmt.Errorf("reserving %q: count must be positive", name)
	}
	if len(ts.entries)+count > ts.Config.MaxTextureCount {
		return metadata.InvalidHandle, fmt.Errorf("texture system cannot reserve %d slots for %q", count, name)
	}
	if _, ok := ts.reserved[name]; ok {
		return metadata.InvalidHandle, fmt.Errorf("range %q is already reserved", name)
	}
	base := metadata.TextureHandle(len(ts.entries))
	for i := 0; i < count; i++ {
		ts.entries = append(ts.entries, textureEntry{name: fmt.Sprintf("%s[%d]", name, i)})
	}
	ts.reserved[name] = reservation{base: base, count: count}
	ts.lookup[name] = base
	return base, nil
}

// Set points a reserved slot at tex. The caller keeps ownership.
func (ts *TextureSystem) Set(index metadata.TextureHandle, tex gpu.Texture) error {
	if int(index) < 0 || int(index) >= len(ts.entries) {
		return fmt.Errorf("heap index %d is not allocated", index)
	}
	if ts.entries[index].owned {
		return fmt.Errorf("heap index %d holds registered texture %q", index, ts.entries[index].name)
	}
	ts.entries[index].texture = tex
	return ts.heap.SetTexture(int(index), tex)
}

// SetNull fills a reserved slot with an empty 2D or cube texture.
func (ts *TextureSystem) SetNull(index metadata.TextureHandle, cube bool) error {
	if int(index) < 0 || int(index) >= len(ts.entries) {
		return fmt.Errorf("heap index %d is not allocated", index)
	}
	return ts.heap.SetNull(int(index), cube)
}

/**
 * @brief Looks a texture or reserved range up by name. Only used while the
 * scene is built; draws use the returned index.
 */
func (ts *TextureSystem) Index(name string) (metadata.TextureHandle, bool) {
	h, ok := ts.lookup[name]
	return h, ok
}

// Texture returns the texture in a heap slot, nil for empty slots.
func (ts *TextureSystem) Texture(index metadata.TextureHandle) gpu.Texture {
	if int(index) < 0 || int(index) >= len(ts.entries) {
		return nil
	}
	return ts.entries[index].texture
}

type decodedTexture struct {
	name string
	data []*metadata.TextureData
	cube bool
}

/**
 * @brief Loads and registers 2D textures in the given order. Files are
 * decoded in parallel on the job system; uploads happen on the caller's
 * goroutine once every decode finished.
 */
func (ts *TextureSystem) LoadTextures(names []string) ([]metadata.TextureHandle, error) {
	decoded, err := RunAll(ts.jobSystem, names, func(name string) (decodedTexture, error) {
		data, err := ts.decode(name)
		return decodedTexture{name: name, data: []*metadata.TextureData{data}}, err
	})
	if err != nil {
		return nil, err
	}
	handles := make([]metadata.TextureHandle, 0, len(decoded))
	for _, d := range decoded {
		h, err := ts.upload(d)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

/**
 * @brief Loads a cube map from six face images named name+CubeFaceSuffixes.
 * If any face is missing all six are generated.
 */
func (ts *TextureSystem) LoadCube(name string) (metadata.TextureHandle, error) {
	faces := make([]string, len(CubeFaceSuffixes))
	for i, s := range CubeFaceSuffixes {
		faces[i] = name + s
	}
	found, err := RunAll(ts.jobSystem, faces, ts.decodeFile)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	data := make([]*metadata.TextureData, len(found))
	for i, f := range found {
		if f == nil {
			core.LogDebug("cube map %s: face %s not found, using generated faces", name, faces[i])
			data = skyFaces()
			break
		}
		if f.Width != found[0].Width || f.Height != found[0].Height || len(f.Mips) != len(found[0].Mips) {
			core.LogWarn("cube map %s: face %s does not match the first face, using generated faces", name, faces[i])
			data = skyFaces()
			break
		}
		data[i] = f
	}
	return ts.upload(decodedTexture{name: name, data: data, cube: true})
}

// decodeFile returns nil without an error when no file carries the name.
func (ts *TextureSystem) decodeFile(name string) (*metadata.TextureData, error) {
	if ts.assetManager == nil {
		return nil, nil
	}
	res, err := ts.assetManager.LoadAsset(name, metadata.ResourceTypeTexture, &loaders.TextureParams{GenerateMips: true})
	if errors.Is(err, assets.ErrAssetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.TextureData), nil
}

func (ts *TextureSystem) decode(name string) (*metadata.TextureData, error) {
	data, err := ts.decodeFile(name)
	if err != nil || data != nil {
		return data, err
	}
	core.LogDebug("texture %s not found, generating a placeholder", name)
	return PlaceholderTexture(name), nil
}

func (ts *TextureSystem) upload(d decodedTexture) (metadata.TextureHandle, error) {
	first := d.data[0]
	desc := gpu.TextureDesc{
		Name:      d.name,
		Width:     first.Width,
		Height:    first.Height,
		MipLevels: uint32(len(first.Mips)),
		ArraySize: uint32(len(d.data)),
		Cube:      d.cube,
		Format:    gpu.FormatRGBA8Unorm,
		Usage:     gpu.UsageSampled,
		State:     gpu.StateGenericRead,
	}
	subresources := make([][]byte, 0, len(d.data)*len(first.Mips))
	for _, layer := range d.data {
		subresources = append(subresources, layer.Mips...)
	}
	tex, err := ts.device.CreateTexture(desc, subresources)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	h, err := ts.Register(d.name, tex)
	if err != nil {
		tex.Release()
		return metadata.InvalidHandle, err
	}
	core.LogDebug("texture %s registered at heap index %d (%dx%d, %d mips)", d.name, h, desc.Width, desc.Height, desc.MipLevels)
	return h, nil
}

/**
 * @brief Generates a stand-in for a missing texture: a flat normal for
 * normal maps, a white texel for "white1x1", otherwise a checkerboard
 * colored from the name. Fence-like names get transparent cells so alpha
 * testing has something to clip.
 */
func PlaceholderTexture(name string) *metadata.TextureData {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "_nmap"):
		return loaders.Solid(color.RGBA{R: 128, G: 128, B: 255, A: 255})
	case strings.HasPrefix(lower, "white"):
		return loaders.Solid(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	h := fnv.New32a()
	h.Write([]byte(lower))
	sum := h.Sum32()
	a := color.RGBA{R: 96 + uint8(sum>>16)%160, G: 96 + uint8(sum>>8)%160, B: 96 + uint8(sum)%160, A: 255}
	b := color.RGBA{R: a.R / 2, G: a.G / 2, B: a.B / 2, A: 255}
	if strings.Contains(lower, "fence") {
		b.A = 0
	}
	return loaders.Checker(64, 8, a, b)
}

func skyFaces() []*metadata.TextureData {
	top := color.RGBA{R: 120, G: 160, B: 220, A: 255}
	side := color.RGBA{R: 176, G: 196, B: 222, A: 255}
	bottom := color.RGBA{R: 90, G: 100, B: 90, A: 255}
	return []*metadata.TextureData{
		loaders.Solid(side), loaders.Solid(side),
		loaders.Solid(top), loaders.Solid(bottom),
		loaders.Solid(side), loaders.Solid(side),
	}
}

func (ts *TextureSystem) Shutdown() error {
	for i := range ts.entries {
		if ts.entries[i].owned && ts.entries[i].texture != nil {
			ts.entries[i].texture.Release()
		}
		ts.entries[i].texture = nil
	}
	if ts.heap != nil {
		ts.heap.Release()
		ts.heap = nil
	}
	return nil
}
