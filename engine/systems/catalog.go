package systems

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief Owns every render item. An item's position in the catalog is its
 * element in the per-frame object buffer. Layers hold non-owning
 * references that decide which pipeline draws an item and in what order.
 */
type RenderItemCatalog struct {
	items  []*metadata.RenderItem
	byID   map[uuid.UUID]int
	layers [metadata.LayerCount][]*metadata.RenderItem
}

func NewRenderItemCatalog() *RenderItemCatalog {
	return &RenderItemCatalog{
		byID: make(map[uuid.UUID]int),
	}
}

// Add takes ownership of item and assigns its ObjCBIndex.
func (c *RenderItemCatalog) Add(item *metadata.RenderItem) int {
	idx := len(c.items)
	item.ObjCBIndex = idx
	c.items = append(c.items, item)
	c.byID[item.ID] = idx
	return idx
}

// AddReflection derives the mirror image of the item at index and adds it
// to the Reflected layer.
func (c *RenderItemCatalog) AddReflection(index int, reflection math.Mat4) (int, error) {
	src := c.Get(index)
	if src == nil {
		return metadata.InvalidHandle, fmt.Errorf("no render item at index %d", index)
	}
	r := metadata.DeriveReflectedItem(src, reflection, len(c.items))
	idx := c.Add(r)
	return idx, c.AddToLayer(metadata.LayerReflected, idx)
}

func (c *RenderItemCatalog) AddToLayer(layer metadata.RenderLayer, index int) error {
	if layer >= metadata.LayerCount {
		return fmt.Errorf("render layer %d does not exist", layer)
	}
	item := c.Get(index)
	if item == nil {
		return fmt.Errorf("no render item at index %d", index)
	}
	c.layers[layer] = append(c.layers[layer], item)
	return nil
}

func (c *RenderItemCatalog) Get(index int) *metadata.RenderItem {
	if index < 0 || index >= len(c.items) {
		return nil
	}
	return c.items[index]
}

func (c *RenderItemCatalog) ByID(id uuid.UUID) (*metadata.RenderItem, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.items[idx], true
}

// Layer returns the items drawn with the layer's pipeline, in draw order.
func (c *RenderItemCatalog) Layer(layer metadata.RenderLayer) []*metadata.RenderItem {
	if layer >= metadata.LayerCount {
		return nil
	}
	return c.layers[layer]
}

func (c *RenderItemCatalog) All() []*metadata.RenderItem {
	return c.items
}

func (c *RenderItemCatalog) Count() int {
	return len(c.items)
}
