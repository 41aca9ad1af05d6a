package containers

// Ring is a fixed-size circular array with a cursor. Advancing past the last
// slot wraps around to the first.
type Ring[T any] struct {
	data   []T
	cursor int
}

// NewRing creates a ring with size slots, each initialized by fill.
func NewRing[T any](size int, fill func(i int) (T, error)) (*Ring[T], error) {
	r := &Ring[T]{
		data:   make([]T, size),
		cursor: size - 1,
	}
	for i := range r.data {
		v, err := fill(i)
		if err != nil {
			return nil, err
		}
		r.data[i] = v
	}
	return r, nil
}

// Advance moves the cursor to the next slot and returns it.
func (r *Ring[T]) Advance() (int, T) {
	r.cursor = (r.cursor + 1) % len(r.data)
	return r.cursor, r.data[r.cursor]
}

// Current returns the slot under the cursor.
func (r *Ring[T]) Current() T {
	return r.data[r.cursor]
}

// Index returns the cursor position.
func (r *Ring[T]) Index() int {
	return r.cursor
}

func (r *Ring[T]) At(i int) T {
	return r.data[i]
}

func (r *Ring[T]) Len() int {
	return len(r.data)
}

// Each calls fn for every slot in index order.
func (r *Ring[T]) Each(fn func(i int, v T)) {
	for i, v := range r.data {
		fn(i, v)
	}
}
