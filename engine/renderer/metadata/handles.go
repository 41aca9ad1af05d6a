package metadata

// Handles index into registries that outlive every render item. They are
// resolved once per draw, never by name.
type (
	MaterialHandle int
	GeometryHandle int
	TextureHandle  int
	PipelineHandle int
)

const InvalidHandle = -1
