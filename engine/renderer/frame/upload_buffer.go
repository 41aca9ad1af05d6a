package frame

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// ConstantBufferAlignment is the required offset alignment of constant buffer views.
const ConstantBufferAlignment = 256

// CalcConstantBufferByteSize rounds n up to a multiple of ConstantBufferAlignment.
func CalcConstantBufferByteSize(n uint64) uint64 {
	return math.AlignUp(n, ConstantBufferAlignment)
}

// UploadBuffer is a persistently mapped array of T the CPU writes and the GPU
// reads. Constant buffers pad every element to ConstantBufferAlignment.
type UploadBuffer[T any] struct {
	buffer   gpu.Buffer
	mapped   []byte
	stride   uint64
	capacity int
	writes   int
}

func NewUploadBuffer[T any](device gpu.Device, name string, capacity int, isConstantBuffer bool) (*UploadBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("upload buffer %s: capacity must be positive, got %d", name, capacity)
	}
	var zero T
	stride := uint64(unsafe.Sizeof(zero))
	usage := gpu.BufferUsageStructured
	if isConstantBuffer {
		stride = CalcConstantBufferByteSize(stride)
		usage = gpu.BufferUsageConstant
	}

	buf, err := device.CreateUploadBuffer(name, stride*uint64(capacity), usage)
	if err != nil {
		return nil, err
	}
	mapped := buf.Mapped()
	if uint64(len(mapped)) < stride*uint64(capacity) {
		buf.Release()
		return nil, fmt.Errorf("upload buffer %s: mapped %d bytes, need %d", name, len(mapped), stride*uint64(capacity))
	}
	return &UploadBuffer[T]{
		buffer:   buf,
		mapped:   mapped,
		stride:   stride,
		capacity: capacity,
	}, nil
}

// CopyData writes value into element index. An out of range index is a
// programming error and panics.
func (u *UploadBuffer[T]) CopyData(index int, value T) {
	if index < 0 || index >= u.capacity {
		panic(fmt.Sprintf("upload buffer %s: index %d out of range [0,%d)", u.buffer.Name(), index, u.capacity))
	}
	size := unsafe.Sizeof(value)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&value)), size)
	off := uint64(index) * u.stride
	copy(u.mapped[off:off+uint64(size)], src)
	u.writes++
}

// Element reads back element index. Used by tests and debugging tools.
func (u *UploadBuffer[T]) Element(index int) T {
	var out T
	off := uint64(index) * u.stride
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out)), unsafe.Sizeof(out))
	copy(dst, u.mapped[off:])
	return out
}

// Writes counts CopyData calls since creation.
func (u *UploadBuffer[T]) Writes() int {
	return u.writes
}

func (u *UploadBuffer[T]) Stride() uint64 {
	return u.stride
}

func (u *UploadBuffer[T]) Capacity() int {
	return u.capacity
}

func (u *UploadBuffer[T]) Buffer() gpu.Buffer {
	return u.buffer
}

// Offset is the byte offset of element index, the address bound for a draw.
func (u *UploadBuffer[T]) Offset(index int) uint64 {
	return uint64(index) * u.stride
}

// Close releases the buffer. Calling it again is a no-op.
func (u *UploadBuffer[T]) Close() {
	if u.buffer == nil {
		return
	}
	u.buffer.Release()
	u.buffer = nil
	u.mapped = nil
}
