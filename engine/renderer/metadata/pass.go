package metadata

import "fmt"

// PassKind names the pass-constant sets written every frame.
type PassKind uint8

const (
	PassMain PassKind = iota
	PassReflected
	PassShadow
)

func (p PassKind) String() string {
	switch p {
	case PassMain:
		return "main"
	case PassReflected:
		return "reflected"
	case PassShadow:
		return "shadow"
	}
	return fmt.Sprintf("pass(%d)", uint8(p))
}

// PassSlots maps each pass kind to its element in the per-frame pass buffer.
// Every kind has its own slot.
var PassSlots = map[PassKind]int{
	PassMain:      0,
	PassReflected: 1,
	PassShadow:    2,
}

// PassCount is the capacity of the per-frame pass buffer.
func PassCount() int {
	return len(PassSlots)
}

// PassSlot returns the buffer element for kind and panics on an unknown kind.
func PassSlot(kind PassKind) int {
	slot, ok := PassSlots[kind]
	if !ok {
		panic(fmt.Sprintf("no constant buffer slot for %s", kind))
	}
	return slot
}

// RenderLayer groups render items drawn with the same pipeline state.
type RenderLayer uint8

const (
	LayerOpaque RenderLayer = iota
	LayerMirrors
	LayerReflected
	LayerTransparent
	LayerAlphaTested
	LayerSky
	LayerDebug
	LayerCount
)

func (l RenderLayer) String() string {
	if l >= LayerCount {
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
	return [...]string{"opaque", "mirrors", "reflected", "transparent", "alpha_tested", "sky", "debug"}[l]
}
