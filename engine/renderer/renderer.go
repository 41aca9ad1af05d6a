package renderer

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/views"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// SkyTextureName is the cube map the sky pass samples. When the scene does
// not register one, a null cube is bound instead.
const SkyTextureName = "sky"

// SceneBounds encloses the demo scene; the shadow map covers it.
var SceneBounds = math.Sphere{
	Center: math.NewVec3Zero(),
	Radius: math.Sqrt(10*10 + 15*15),
}

/**
 * @brief Runs the frame loop: waits for a free frame resource, uploads the
 * changed constants into it and records shadow, normal/depth, SSAO and main
 * passes into one command list.
 */
type Renderer struct {
	cfg    *config.Config
	device gpu.Device
	sm     *systems.SystemManager
	camera *components.Camera

	ring *frame.FrameRing
	list gpu.CommandList

	layout    views.HeapLayout
	depth     gpu.Texture
	shadowMap *views.ShadowMap
	ssao      *views.Ssao

	mainSignature gpu.RootSignature
	ssaoSignature gpu.RootSignature

	ssaoPass *views.SsaoPass
	passes   []views.Pass

	lighting  Lighting
	shadow    ShadowTransform
	mainPass  metadata.PassConstants
	reflector math.Mat4

	animateMaterials MaterialAnimator
}

// MaterialAnimator runs once per frame before the material buffer is
// written. It must change materials through their setters.
type MaterialAnimator func(timer *core.GameTimer, materials []*metadata.Material)

func (r *Renderer) SetMaterialAnimator(fn MaterialAnimator) {
	r.animateMaterials = fn
}

/**
 * @brief Creates the frame resources, the offscreen targets and every
 * pipeline state. The scene must already be registered with sm: the frame
 * resources are sized from the catalog and the material registry.
 */
func NewRenderer(cfg *config.Config, device gpu.Device, sm *systems.SystemManager, camera *components.Camera) (*Renderer, error) {
	r := &Renderer{
		cfg:       cfg,
		device:    device,
		sm:        sm,
		camera:    camera,
		lighting:  NewLighting(),
		reflector: math.NewMat4Reflect(metadata.MirrorPlane),
	}
	if err := r.reserveHeap(); err != nil {
		return nil, err
	}

	counts := frame.Counts{
		Passes:    metadata.PassCount(),
		Objects:   max(sm.Catalog.Count(), 1),
		Materials: max(sm.MaterialSystem.Count(), 1),
	}
	ring, err := frame.NewFrameRing(device, cfg.Renderer.FrameResources, counts)
	if err != nil {
		return nil, err
	}
	r.ring = ring

	list, err := device.CreateCommandList(ring.Current().Allocator)
	if err != nil {
		r.Close()
		return nil, err
	}
	// Lists are created recording; Draw resets it each frame.
	if err := list.Close(); err != nil {
		r.Close()
		return nil, err
	}
	r.list = list

	sc := device.Swapchain()
	if err := r.createDepthBuffer(sc.Width(), sc.Height()); err != nil {
		r.Close()
		return nil, err
	}
	if r.shadowMap, err = views.NewShadowMap(device, cfg.Renderer.ShadowMapSize); err != nil {
		r.Close()
		return nil, err
	}
	if err := sm.TextureSystem.Set(r.layout.ShadowMap, r.shadowMap.Texture()); err != nil {
		r.Close()
		return nil, err
	}
	if r.ssao, err = views.NewSsao(device, sm.TextureSystem, r.layout.Ssao, sc.Width(), sc.Height(), r.depth); err != nil {
		r.Close()
		return nil, err
	}

	if r.mainSignature, r.ssaoSignature, err = views.BuildRootSignatures(sm.PipelineSystem); err != nil {
		r.Close()
		return nil, err
	}
	if err := views.BuildPipelines(sm.PipelineSystem, sm.ShaderSystem, r.mainSignature, r.ssaoSignature, sc.Format()); err != nil {
		r.Close()
		return nil, err
	}

	r.ssaoPass = &views.SsaoPass{Ssao: r.ssao, BlurCount: cfg.Ssao.BlurCount}
	r.passes = []views.Pass{
		&views.ShadowPass{Map: r.shadowMap},
		&views.NormalDepthPass{Ssao: r.ssao},
		r.ssaoPass,
		&views.MainPass{},
	}

	camera.SetLens(0.25*math.K_PI, float32(sc.Width())/float32(sc.Height()), NearZ, FarZ)
	core.LogInfo("renderer ready: %d frame resources, %d render items, %d materials, %d pipelines",
		cfg.Renderer.FrameResources, counts.Objects, counts.Materials, sm.PipelineSystem.Count())
	return r, nil
}

// reserveHeap lays out the slots after the scene textures: sky cube, shadow
// map and the SSAO range must be adjacent because the main pass binds them
// as one table.
func (r *Renderer) reserveHeap() error {
	ts := r.sm.TextureSystem
	sky, ok := ts.Index(SkyTextureName)
	if !ok {
		var err error
		if sky, err = ts.Reserve(SkyTextureName, 1); err != nil {
			return err
		}
		if err := ts.SetNull(sky, true); err != nil {
			return err
		}
	}
	shadow, err := ts.Reserve("shadow_map", 1)
	if err != nil {
		return err
	}
	if shadow != sky+1 {
		return fmt.Errorf("sky cube at heap index %d must precede the shadow map at %d", sky, shadow)
	}
	ssao, err := ts.Reserve("ssao", views.SsaoSlotCount)
	if err != nil {
		return err
	}
	null, err := ts.Reserve("null", views.NullSlotCount)
	if err != nil {
		return err
	}
	if err := ts.SetNull(null, true); err != nil {
		return err
	}
	for i := 1; i < views.NullSlotCount; i++ {
		if err := ts.SetNull(null+metadata.TextureHandle(i), false); err != nil {
			return err
		}
	}
	r.layout = views.HeapLayout{Sky: sky, ShadowMap: shadow, Ssao: ssao, Null: null}
	core.LogDebug("descriptor heap: sky %d, shadow %d, ssao %d, null %d", sky, shadow, ssao, null)
	return nil
}

func (r *Renderer) createDepthBuffer(width, height uint32) error {
	if r.depth != nil {
		r.depth.Release()
	}
	tex, err := r.device.CreateTexture(gpu.TextureDesc{
		Name:      "depth_stencil",
		Width:     width,
		Height:    height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    views.DepthStencilFormat,
		Usage:     gpu.UsageSampled | gpu.UsageDepthStencil,
		State:     gpu.StateDepthWrite,
	}, nil)
	if err != nil {
		return err
	}
	r.depth = tex
	return nil
}

/**
 * @brief Moves to the next frame resource, blocking only if the GPU still
 * uses it, then writes everything the frame's passes read.
 */
func (r *Renderer) Update(ctx context.Context, timer *core.GameTimer) error {
	fr, err := r.ring.Advance(ctx)
	if err != nil {
		return err
	}

	r.lighting.Animate(timer.DeltaTime())
	if r.animateMaterials != nil {
		r.animateMaterials(timer, r.sm.MaterialSystem.All())
	}

	UpdateObjectCBs(r.sm.Catalog.All(), r.sm.MaterialSystem, fr.ObjectCB)
	UpdateMaterialBuffer(r.sm.MaterialSystem.All(), fr.MaterialBuffer)

	r.shadow = NewShadowTransform(r.lighting.Directions[0], SceneBounds)
	r.updateMainPassCB(fr, timer)
	fr.PassCB.CopyData(metadata.PassSlot(metadata.PassReflected), ReflectedPassConstants(r.mainPass, r.reflector))
	r.updateShadowPassCB(fr)
	return r.updateSsaoCB(fr)
}

func (r *Renderer) updateMainPassCB(fr *frame.FrameResource, timer *core.GameTimer) {
	sc := r.device.Swapchain()
	pc := passConstants(r.camera.View(), r.camera.Proj(), r.camera.Position(), sc.Width(), sc.Height(), NearZ, FarZ)
	pc.ShadowTransform = r.shadow.S.Transpose()
	pc.TotalTime = timer.TotalTime()
	pc.DeltaTime = timer.DeltaTime()
	setLights(&pc, r.lighting.Directions)
	r.mainPass = pc
	fr.PassCB.CopyData(metadata.PassSlot(metadata.PassMain), pc)
}

func (r *Renderer) updateShadowPassCB(fr *frame.FrameResource) {
	size := r.shadowMap.Size()
	pc := passConstants(r.shadow.View, r.shadow.Proj, r.shadow.LightPosW, size, size, r.shadow.NearZ, r.shadow.FarZ)
	fr.PassCB.CopyData(metadata.PassSlot(metadata.PassShadow), pc)
}

func (r *Renderer) updateSsaoCB(fr *frame.FrameResource) error {
	c, err := r.ssao.Constants(r.camera.Proj(), r.cfg.Ssao)
	if err != nil {
		return err
	}
	fr.SsaoCB.CopyData(0, c)
	return nil
}

/**
 * @brief Records the passes for the current frame resource, submits them,
 * signals the fence and presents.
 */
func (r *Renderer) Draw(ctx context.Context) error {
	fr := r.ring.Current()
	if err := fr.Allocator.Reset(); err != nil {
		return err
	}
	if err := r.list.Reset(fr.Allocator, nil); err != nil {
		return err
	}

	sc := r.device.Swapchain()
	heap := r.sm.TextureSystem.Heap()
	r.list.SetDescriptorHeap(heap)

	r.ssaoPass.BlurCount = r.cfg.Ssao.BlurCount
	pc := &views.PassContext{
		List:          r.list,
		Frame:         fr,
		Catalog:       r.sm.Catalog,
		Geometries:    r.sm.GeometrySystem,
		Pipelines:     r.sm.PipelineSystem,
		Heap:          heap,
		Layout:        r.layout,
		MainSignature: r.mainSignature,
		SsaoSignature: r.ssaoSignature,
		Targets: views.Targets{
			BackBuffer: sc.CurrentBackBuffer(),
			Depth:      r.depth,
			Width:      sc.Width(),
			Height:     sc.Height(),
		},
		ShowDebugQuads: r.cfg.Renderer.ShowDebugQuads,
	}
	for _, p := range r.passes {
		if err := p.Record(pc); err != nil {
			return fmt.Errorf("recording %s pass: %w", p.Name(), err)
		}
	}
	if err := r.list.Close(); err != nil {
		return err
	}

	if _, err := r.ring.SubmitFrame(r.list); err != nil {
		return err
	}
	return sc.Present(r.cfg.Renderer.VSync)
}

/**
 * @brief Recreates the screen sized resources. Waits for the GPU first
 * because the old targets may still be in use.
 */
func (r *Renderer) OnResize(ctx context.Context, width, height uint32) error {
	if width == 0 || height == 0 {
		return core.NewDeviceError("OnResize", -1, fmt.Sprintf("zero extent %dx%d", width, height), core.ErrSwapchainBooting)
	}
	if err := r.ring.Flush(ctx); err != nil {
		return err
	}
	if err := r.device.Swapchain().Resize(width, height); err != nil {
		return err
	}
	if err := r.createDepthBuffer(width, height); err != nil {
		return err
	}
	if err := r.ssao.OnResize(width, height, r.depth); err != nil {
		return err
	}
	r.camera.SetLens(0.25*math.K_PI, float32(width)/float32(height), NearZ, FarZ)
	core.LogDebug("renderer resized to %dx%d", width, height)
	return nil
}

// Flush waits for every submitted frame.
func (r *Renderer) Flush(ctx context.Context) error {
	return r.ring.Flush(ctx)
}

func (r *Renderer) Ring() *frame.FrameRing {
	return r.ring
}

func (r *Renderer) Layout() views.HeapLayout {
	return r.layout
}

func (r *Renderer) Ssao() *views.Ssao {
	return r.ssao
}

func (r *Renderer) ShadowMap() *views.ShadowMap {
	return r.shadowMap
}

func (r *Renderer) ShadowTransform() ShadowTransform {
	return r.shadow
}

// Close releases the renderer's resources. The caller flushes first.
func (r *Renderer) Close() {
	if r.ssao != nil {
		r.ssao.Release()
	}
	if r.shadowMap != nil {
		r.shadowMap.Release()
	}
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
	if r.ring != nil {
		r.ring.Close()
	}
}
