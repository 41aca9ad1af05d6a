package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// MirrorPlane is the plane z = 0 the mirror lies in.
var MirrorPlane = math.NewPlane(0, 0, 1, 0)

/**
 * @brief The data needed to draw one shape. Geometry and material are
 * handles; the registries own the objects.
 */
type RenderItem struct {
	ID   uuid.UUID
	Name string

	/** @brief Object to world transform. */
	World        math.Mat4
	TexTransform math.Mat4

	/**
	 * @brief Frames whose object buffer still holds stale data. Each frame
	 * resource has its own buffer, so a change must be written N times.
	 */
	NumFramesDirty int
	frames         int

	/** @brief Element of the per-frame object buffer. */
	ObjCBIndex int

	Geometry GeometryHandle
	Material MaterialHandle
	Topology gpu.Topology

	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32
}

// NewRenderItem creates an item dirty for all frame resources.
func NewRenderItem(name string, frames int) *RenderItem {
	return &RenderItem{
		ID:             uuid.New(),
		Name:           name,
		World:          math.NewMat4Identity(),
		TexTransform:   math.NewMat4Identity(),
		NumFramesDirty: frames,
		frames:         frames,
		ObjCBIndex:     InvalidHandle,
		Geometry:       InvalidHandle,
		Material:       InvalidHandle,
		Topology:       gpu.TopologyTriangleList,
	}
}

// SetSubmesh copies the draw range of sm.
func (ri *RenderItem) SetSubmesh(sm SubmeshGeometry) {
	ri.IndexCount = sm.IndexCount
	ri.StartIndexLocation = sm.StartIndexLocation
	ri.BaseVertexLocation = sm.BaseVertexLocation
}

func (ri *RenderItem) SetWorld(world math.Mat4) {
	ri.World = world
	ri.MarkDirty()
}

func (ri *RenderItem) SetTexTransform(t math.Mat4) {
	ri.TexTransform = t
	ri.MarkDirty()
}

// MarkDirty schedules the item to be rewritten into every frame resource.
func (ri *RenderItem) MarkDirty() {
	ri.NumFramesDirty = ri.frames
}

// FrameCount is the number of frame resources the item is tracked against.
func (ri *RenderItem) FrameCount() int {
	return ri.frames
}

// Constants returns what the object buffer holds for this item.
func (ri *RenderItem) Constants(materialIndex int) ObjectConstants {
	return ObjectConstants{
		World:         ri.World.Transpose(),
		TexTransform:  ri.TexTransform.Transpose(),
		MaterialIndex: uint32(materialIndex),
	}
}

/**
 * @brief Creates the mirror image of source. The copy shares geometry and
 * material handles but no mutable state, writes its own object buffer
 * element and is dirty for every frame resource.
 * @param source The item to reflect.
 * @param reflection The reflection matrix, usually built from MirrorPlane.
 * @param newIndex The object buffer element of the copy.
 */
func DeriveReflectedItem(source *RenderItem, reflection math.Mat4, newIndex int) *RenderItem {
	out := *source
	out.ID = uuid.New()
	out.Name = source.Name + "_reflected"
	out.World = source.World.Mul(reflection)
	out.ObjCBIndex = newIndex
	out.MarkDirty()
	return &out
}
