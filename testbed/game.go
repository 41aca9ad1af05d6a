package testbed

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/geometry"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// SceneTextures are loaded in this order, so their heap indices are their
// positions in the slice. The sky cube follows them.
var SceneTextures = []string{
	"bricks", "bricks2", "tile", "stone", "checkboard", "WireFence", "ice", "white1x1",
	"bricks_nmap", "bricks2_nmap", "tile_nmap", "default_nmap",
}

// SkyTexture is the base name of the six cube map faces.
const SkyTexture = "sky"

var sceneMaterials = []metadata.MaterialConfig{
	{Name: "bricks", DiffuseMapName: "bricks", NormalMapName: "bricks_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1), FresnelR0: math.NewVec3(0.1, 0.12, 0.12), Roughness: 0.1},
	{Name: "brick2", DiffuseMapName: "bricks2", NormalMapName: "bricks2_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1), FresnelR0: math.NewVec3(0.05, 0.05, 0.05), Roughness: 0.3},
	{Name: "tile", DiffuseMapName: "tile", NormalMapName: "tile_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1), FresnelR0: math.NewVec3(0.02, 0.02, 0.02), Roughness: 0.2},
	{Name: "stone", DiffuseMapName: "stone", NormalMapName: "default_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1), FresnelR0: math.NewVec3(0.1, 0.1, 0.1), Roughness: 0.25},
	{Name: "WireFence", DiffuseMapName: "WireFence", NormalMapName: "default_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1), FresnelR0: math.NewVec3(0.02, 0.02, 0.02), Roughness: 0.1},
	{Name: "ice", DiffuseMapName: "ice", NormalMapName: "default_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 0.3), FresnelR0: math.NewVec3(0.78, 0.78, 0.78), Roughness: 0.4},
	{Name: "white1x1", DiffuseMapName: "white1x1", NormalMapName: "default_nmap", DiffuseAlbedo: math.NewVec4(0, 0, 0, 0.5), FresnelR0: math.NewVec3(0.98, 0.97, 0.95), Roughness: 0.1},
	{Name: "sky", DiffuseMapName: "white1x1", NormalMapName: "default_nmap", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1), FresnelR0: math.NewVec3(0.1, 0.1, 0.1), Roughness: 1},
}

const (
	wallWidth    = 30
	wallHeight   = 8
	mirrorWidth  = 6
	mirrorHeight = 4
	columnRows   = 5
)

type gameState struct {
	cfg    *config.Config
	camera *components.Camera
	frames int

	width  uint32
	height uint32
}

// NewTestGame returns the mirror demo: a walled room with a mirror in the
// wall, columns and a fenced crate in front of it, and a sky dome.
func NewTestGame(cfg *config.Config, configPath string) *engine.Game {
	state := &gameState{
		cfg:    cfg,
		frames: cfg.Renderer.FrameResources,
		width:  cfg.Window.Width,
		height: cfg.Window.Height,
	}
	return &engine.Game{
		ApplicationConfig: engine.NewApplicationConfig(cfg, configPath),
		State:             state,
		FnInitialize:      state.initialize,
		FnUpdate:          state.update,
		FnOnResize:        state.onResize,
		FnShutdown:        state.shutdown,
	}
}

func (g *gameState) initialize(sm *systems.SystemManager, camera *components.Camera) error {
	core.LogInfo("building the mirror scene...")
	g.camera = camera

	if _, err := sm.TextureSystem.LoadTextures(SceneTextures); err != nil {
		return err
	}
	if _, err := sm.TextureSystem.LoadCube(SkyTexture); err != nil {
		return err
	}
	for _, m := range sceneMaterials {
		if _, err := sm.MaterialSystem.Register(m); err != nil {
			return err
		}
	}
	if err := BuildScene(sm, g.frames); err != nil {
		return err
	}

	p := g.cfg.Camera.Position
	camera.LookAt(math.NewVec3(p[0], p[1], p[2]), math.NewVec3(0, 1, 0), math.NewVec3Up())
	camera.UpdateViewMatrix()
	core.LogInfo("scene ready: %d render items, %d materials", sm.Catalog.Count(), sm.MaterialSystem.Count())
	return nil
}

func shapeParts() []geometry.Part {
	return []geometry.Part{
		{Name: "box", Mesh: geometry.CreateBox(1.5, 1.5, 1.5, 3)},
		{Name: "grid", Mesh: geometry.CreateGrid(20, 15, 40, 30)},
		{Name: "sphere", Mesh: geometry.CreateSphere(0.5, 20, 20)},
		{Name: "cylinder", Mesh: geometry.CreateCylinder(0.5, 0.3, 3, 20, 20)},
		{Name: "wall", Mesh: geometry.CreateWall(wallWidth, wallHeight, mirrorWidth, mirrorHeight)},
		{Name: "mirror", Mesh: geometry.CreateWall(mirrorWidth, mirrorHeight, 0, 0)},
		{Name: "quad", Mesh: geometry.CreateQuad(-1, 1, 0.4, 0.4, 0)},
		{Name: "quad2", Mesh: geometry.CreateQuad(-0.59, 1, 0.4, 0.4, 0)},
	}
}

type itemDesc struct {
	name      string
	submesh   string
	material  string
	world     math.Mat4
	tex       math.Mat4
	layers    []metadata.RenderLayer
	reflected bool
}

func sceneItems() []itemDesc {
	id := math.NewMat4Identity()
	items := []itemDesc{
		{
			name: "sky", submesh: "sphere", material: "sky",
			world: math.NewMat4Scale(math.NewVec3(5000, 5000, 5000)), tex: id,
			layers: []metadata.RenderLayer{metadata.LayerSky},
		},
		{
			// The floor stops at the wall; its reflection shows behind the mirror.
			name: "floor", submesh: "grid", material: "tile",
			world:  math.NewMat4Translation(math.NewVec3(0, 0, -7.5)),
			tex:    math.NewMat4Scale(math.NewVec3(4, 3, 1)),
			layers: []metadata.RenderLayer{metadata.LayerOpaque}, reflected: true,
		},
		{
			name: "wall", submesh: "wall", material: "brick2",
			world: id, tex: math.NewMat4Scale(math.NewVec3(2, 2, 1)),
			layers: []metadata.RenderLayer{metadata.LayerOpaque},
		},
		{
			name: "mirror", submesh: "mirror", material: "ice",
			world: id, tex: id,
			layers: []metadata.RenderLayer{metadata.LayerMirrors, metadata.LayerTransparent},
		},
		{
			name: "crate", submesh: "box", material: "WireFence",
			world:  math.NewMat4Scale(math.NewVec3(2, 2, 2)).Mul(math.NewMat4Translation(math.NewVec3(0, 1.5, -5))),
			tex:    id,
			layers: []metadata.RenderLayer{metadata.LayerAlphaTested}, reflected: true,
		},
	}

	for i := 0; i < columnRows; i++ {
		z := -2.5 - 2.5*float32(i)
		for _, x := range []float32{-5, 5} {
			side := "left"
			if x > 0 {
				side = "right"
			}
			items = append(items,
				itemDesc{
					name: fmt.Sprintf("column_%s_%d", side, i), submesh: "cylinder", material: "bricks",
					world: math.NewMat4Translation(math.NewVec3(x, 1.5, z)), tex: id,
					layers: []metadata.RenderLayer{metadata.LayerOpaque}, reflected: true,
				},
				itemDesc{
					name: fmt.Sprintf("ball_%s_%d", side, i), submesh: "sphere", material: "white1x1",
					world: math.NewMat4Translation(math.NewVec3(x, 3.5, z)), tex: id,
					layers: []metadata.RenderLayer{metadata.LayerOpaque}, reflected: true,
				},
			)
		}
	}

	items = append(items,
		itemDesc{name: "shadow_quad", submesh: "quad", material: "bricks", world: id, tex: id, layers: []metadata.RenderLayer{metadata.LayerDebug}},
		itemDesc{name: "ssao_quad", submesh: "quad2", material: "bricks", world: id, tex: id, layers: []metadata.RenderLayer{metadata.LayerDebug}},
	)
	return items
}

/**
 * @brief Registers the shape geometry and creates every render item of the
 * demo. Textures and materials must already be registered. Items in front
 * of the mirror get a reflected copy across MirrorPlane.
 */
func BuildScene(sm *systems.SystemManager, frames int) error {
	geo, err := geometry.Pack("shapes", shapeParts()...)
	if err != nil {
		return err
	}
	gh, err := sm.GeometrySystem.Register(geo)
	if err != nil {
		return err
	}

	reflect := math.NewMat4Reflect(metadata.MirrorPlane)
	var toReflect []int
	for _, d := range sceneItems() {
		sub, err := sm.GeometrySystem.Submesh(gh, d.submesh)
		if err != nil {
			return err
		}
		mat, ok := sm.MaterialSystem.Handle(d.material)
		if !ok {
			return fmt.Errorf("render item %s: material %q is not registered", d.name, d.material)
		}
		ri := metadata.NewRenderItem(d.name, frames)
		ri.Geometry = gh
		ri.Material = mat
		ri.SetSubmesh(sub)
		ri.SetWorld(d.world)
		ri.SetTexTransform(d.tex)

		idx := sm.Catalog.Add(ri)
		for _, l := range d.layers {
			if err := sm.Catalog.AddToLayer(l, idx); err != nil {
				return err
			}
		}
		if d.reflected {
			toReflect = append(toReflect, idx)
		}
	}
	// Reflections go last so every source keeps a contiguous object index.
	for _, idx := range toReflect {
		if _, err := sm.Catalog.AddReflection(idx, reflect); err != nil {
			return err
		}
	}
	return nil
}

func (g *gameState) update(timer *core.GameTimer) error {
	if g.camera == nil {
		return nil
	}
	dt := timer.DeltaTime()
	step := g.cfg.Camera.MoveSpeed * dt

	if core.InputIsKeyDown(core.KEY_W) {
		g.camera.Walk(step)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		g.camera.Walk(-step)
	}
	if core.InputIsKeyDown(core.KEY_A) {
		g.camera.Strafe(-step)
	}
	if core.InputIsKeyDown(core.KEY_D) {
		g.camera.Strafe(step)
	}

	if core.InputIsButtonDown(core.BUTTON_LEFT) {
		x, y := core.InputGetMousePosition()
		px, py := core.InputGetPreviousMousePosition()
		// Each pixel of drag turns the camera by MouseSensitivity degrees.
		dx := math.DegToRad(g.cfg.Camera.MouseSensitivity * float32(x-px))
		dy := math.DegToRad(g.cfg.Camera.MouseSensitivity * float32(y-py))
		g.camera.Pitch(dy)
		g.camera.RotateY(dx)
	}
	g.camera.UpdateViewMatrix()
	return nil
}

func (g *gameState) onResize(width, height uint32) error {
	g.width = width
	g.height = height
	return nil
}

func (g *gameState) shutdown() error {
	core.LogInfo("shutting down testbed")
	return nil
}
