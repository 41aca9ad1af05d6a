package renderer

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

const (
	NearZ = 1.0
	FarZ  = 1000.0
	// LightRotationSpeed is in radians per second.
	LightRotationSpeed = 0.1
	DirectionalLights  = 3
)

var (
	AmbientLight = math.NewVec4(0.25, 0.25, 0.35, 1)

	BaseLightDirections = [DirectionalLights]math.Vec3{
		math.NewVec3(0.57735, -0.57735, 0.57735),
		math.NewVec3(-0.57735, -0.57735, 0.57735),
		math.NewVec3(0, -0.707, -0.707),
	}
	LightStrengths = [DirectionalLights]math.Vec3{
		math.NewVec3(0.9, 0.8, 0.7),
		math.NewVec3(0.45, 0.45, 0.45),
		math.NewVec3(0.35, 0.35, 0.15),
	}
)

/**
 * @brief Writes the constants of every dirty render item into the frame's
 * object buffer and counts the frame off. Clean items are not touched.
 * @return The number of items written.
 */
func UpdateObjectCBs(items []*metadata.RenderItem, materials *systems.MaterialSystem, cb *frame.UploadBuffer[metadata.ObjectConstants]) int {
	written := 0
	for _, ri := range items {
		if ri.NumFramesDirty <= 0 {
			continue
		}
		matIndex := 0
		if m := materials.Get(ri.Material); m != nil {
			matIndex = m.MatCBIndex
		}
		cb.CopyData(ri.ObjCBIndex, ri.Constants(matIndex))
		ri.NumFramesDirty--
		written++
	}
	return written
}

// UpdateMaterialBuffer does for materials what UpdateObjectCBs does for items.
func UpdateMaterialBuffer(materials []*metadata.Material, buf *frame.UploadBuffer[metadata.MaterialData]) int {
	written := 0
	for _, m := range materials {
		if m.NumFramesDirty <= 0 {
			continue
		}
		buf.CopyData(m.MatCBIndex, m.Data())
		m.NumFramesDirty--
		written++
	}
	return written
}

/**
 * @brief The directional lights. The base directions turn around the world
 * Y axis over time; the first light casts the shadows.
 */
type Lighting struct {
	Rotation   float32
	Directions [DirectionalLights]math.Vec3
}

func NewLighting() Lighting {
	return Lighting{Directions: BaseLightDirections}
}

// Animate turns the lights by LightRotationSpeed*dt.
func (l *Lighting) Animate(dt float32) {
	l.Rotation += LightRotationSpeed * dt
	r := math.NewMat4RotationY(l.Rotation)
	for i, d := range BaseLightDirections {
		l.Directions[i] = d.TransformNormal(r)
	}
}

/**
 * @brief The light-space view and projection that fit the scene bounds,
 * and the transform from world space to shadow map texture space.
 */
type ShadowTransform struct {
	LightPosW math.Vec3
	View      math.Mat4
	Proj      math.Mat4
	NearZ     float32
	FarZ      float32
	// S maps world positions to shadow map texture coordinates and depth.
	S math.Mat4
}

// NewShadowTransform places the light 2 radii away from the scene center
// along -dir and encloses the bounding sphere in an orthographic volume.
func NewShadowTransform(dir math.Vec3, bounds math.Sphere) ShadowTransform {
	pos := dir.MulScalar(-2 * bounds.Radius).Add(bounds.Center)
	view := math.NewMat4LookAtLH(pos, bounds.Center, math.NewVec3Up())

	c := bounds.Center.TransformCoord(view)
	r := bounds.Radius
	proj := math.NewMat4OrthographicOffCenterLH(c.X-r, c.X+r, c.Y-r, c.Y+r, c.Z-r, c.Z+r)

	return ShadowTransform{
		LightPosW: pos,
		View:      view,
		Proj:      proj,
		NearZ:     c.Z - r,
		FarZ:      c.Z + r,
		S:         view.Mul(proj).Mul(math.TextureSpace),
	}
}

// passConstants fills the matrices of a pass from a view and projection.
func passConstants(view, proj math.Mat4, eye math.Vec3, width, height uint32, nearZ, farZ float32) metadata.PassConstants {
	viewProj := view.Mul(proj)
	return metadata.PassConstants{
		View:                view.Transpose(),
		InvView:             view.Inverse().Transpose(),
		Proj:                proj.Transpose(),
		InvProj:             proj.Inverse().Transpose(),
		ViewProj:            viewProj.Transpose(),
		InvViewProj:         viewProj.Inverse().Transpose(),
		ViewProjTex:         viewProj.Mul(math.TextureSpace).Transpose(),
		EyePosW:             eye,
		RenderTargetSize:    math.NewVec2(float32(width), float32(height)),
		InvRenderTargetSize: math.NewVec2(1/float32(width), 1/float32(height)),
		NearZ:               nearZ,
		FarZ:                farZ,
	}
}

// setLights writes the directional lights and the ambient term.
func setLights(pc *metadata.PassConstants, dirs [DirectionalLights]math.Vec3) {
	pc.AmbientLight = AmbientLight
	for i := range dirs {
		pc.Lights[i].Direction = dirs[i]
		pc.Lights[i].Strength = LightStrengths[i]
	}
}

// ReflectedPassConstants copies main with every light direction reflected
// by r.
func ReflectedPassConstants(main metadata.PassConstants, r math.Mat4) metadata.PassConstants {
	out := main
	for i := 0; i < DirectionalLights; i++ {
		out.Lights[i].Direction = main.Lights[i].Direction.TransformNormal(r)
	}
	return out
}
