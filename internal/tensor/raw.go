package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// tensorBuffer is a reference-counted buffer shared by a tensor and its views.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.data = nil
	}
}

// RawTensor is a dense, row-major tensor. Views created by Narrow and Clone
// share the underlying buffer; Copy never does.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int
	dtype  DataType
	offset int // In bytes.
}

// NewRaw allocates a zeroed tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the memory size of the viewed region in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the bytes of the viewed region.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.buffer.data[r.offset : r.offset+r.ByteSize()]
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	n := r.NumElements()
	if n == 0 {
		return []float32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.buffer.data[r.offset])), n)
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	n := r.NumElements()
	if n == 0 {
		return []int64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.buffer.data[r.offset])), n)
}

// Narrow returns a view of rows [start, end) along dimension 0. The view
// shares memory with r.
func (r *RawTensor) Narrow(start, end int) (*RawTensor, error) {
	if len(r.shape) == 0 {
		return nil, fmt.Errorf("cannot narrow a scalar")
	}
	if start < 0 || end < start || end > r.shape[0] {
		return nil, fmt.Errorf("narrow [%d, %d) out of bounds for dimension of size %d", start, end, r.shape[0])
	}
	shape := r.shape.Clone()
	shape[0] = end - start
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape,
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		offset: r.offset + start*r.stride[0]*r.dtype.Size(),
	}, nil
}

// Clone creates a shallow copy of the RawTensor (shares buffer with reference counting).
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		offset: r.offset,
	}
}

// Copy returns a tensor with its own buffer holding the same values.
func (r *RawTensor) Copy() *RawTensor {
	out := &RawTensor{
		buffer: newTensorBuffer(r.ByteSize()),
		shape:  r.shape.Clone(),
		stride: r.shape.ComputeStrides(),
		dtype:  r.dtype,
	}
	copy(out.buffer.data, r.Data())
	return out
}

// Release decrements the reference count and drops the buffer at zero.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.refCount.Load() == 1
}

// SharesStorage reports whether r and other are views of the same buffer.
func (r *RawTensor) SharesStorage(other *RawTensor) bool {
	return r.buffer == other.buffer
}
