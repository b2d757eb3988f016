// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// RawTensor is the low-level tensor representation: a contiguous
// row-major byte buffer together with shape and runtime type.
//
// RawTensor is what state dictionaries map parameter paths to, and what
// the serialization layer reads and writes. It carries no gradient and
// no device placement.
type RawTensor struct {
	data  []byte
	shape Shape
	dtype DataType
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// FromFloat32 creates a Float32 RawTensor from a slice.
// The slice length must match the number of elements in shape.
func FromFloat32(values []float32, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(values) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(values), shape, shape.NumElements())
	}

	raw := &RawTensor{
		data:  make([]byte, len(values)*4),
		shape: shape.Clone(),
		dtype: Float32,
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw.data[i*4:], math.Float32bits(v))
	}
	return raw, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Data returns the underlying byte buffer.
//
// The buffer is shared, not copied: writes through it mutate the tensor.
// This is how weight loading updates live parameters in place.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 decodes the tensor contents as float32 values.
//
// Float32 tensors decode directly; Float16 tensors are widened element
// by element. Integer tensors return an error.
func (r *RawTensor) AsFloat32() ([]float32, error) {
	n := r.NumElements()
	out := make([]float32, n)

	switch r.dtype {
	case Float32:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[i*4:]))
		}
	case Float16:
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(r.data[i*2:])).Float32()
		}
	default:
		return nil, fmt.Errorf("cannot decode %s tensor as float32", r.dtype)
	}
	return out, nil
}

// SetFloat32 overwrites the tensor contents from a float32 slice.
// Panics if the dtype is not Float32 or the length does not match.
func (r *RawTensor) SetFloat32(values []float32) {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("SetFloat32 called on %s tensor", r.dtype))
	}
	if len(values) != r.NumElements() {
		panic(fmt.Sprintf("SetFloat32: length %d does not match %d elements", len(values), r.NumElements()))
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(r.data[i*4:], math.Float32bits(v))
	}
}

// At returns the float32 element at the given flat index.
func (r *RawTensor) At(i int) float32 {
	switch r.dtype {
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(r.data[i*4:]))
	case Float16:
		return float16.Frombits(binary.LittleEndian.Uint16(r.data[i*2:])).Float32()
	default:
		panic(fmt.Sprintf("At called on %s tensor", r.dtype))
	}
}

// Set stores a float32 value at the given flat index.
func (r *RawTensor) Set(i int, v float32) {
	switch r.dtype {
	case Float32:
		binary.LittleEndian.PutUint32(r.data[i*4:], math.Float32bits(v))
	case Float16:
		binary.LittleEndian.PutUint16(r.data[i*2:], float16.Fromfloat32(v).Bits())
	default:
		panic(fmt.Sprintf("Set called on %s tensor", r.dtype))
	}
}

// CopyFrom copies the contents of src into r.
// Shapes and dtypes must match exactly.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if !r.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: expected %v, got %v", r.shape, src.shape)
	}
	if r.dtype != src.dtype {
		return fmt.Errorf("dtype mismatch: expected %s, got %s", r.dtype, src.dtype)
	}
	copy(r.data, src.data)
	return nil
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:  data,
		shape: r.shape.Clone(),
		dtype: r.dtype,
	}
}

// Equal reports whether two tensors have identical shape, dtype and
// contents.
func (r *RawTensor) Equal(other *RawTensor) bool {
	return r.dtype == other.dtype &&
		r.shape.Equal(other.shape) &&
		bytes.Equal(r.data, other.data)
}

// ToFloat16 returns a Float16 copy of a Float32 tensor.
// Values outside the float16 range saturate to +-Inf.
func (r *RawTensor) ToFloat16() (*RawTensor, error) {
	if r.dtype != Float32 {
		return nil, fmt.Errorf("cannot convert %s tensor to float16", r.dtype)
	}

	out, err := NewRaw(r.shape, Float16)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r.NumElements(); i++ {
		out.Set(i, r.At(i))
	}
	return out, nil
}
