// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		want  int
	}{
		{"scalar-like", Shape{1}, 1},
		{"vector", Shape{5}, 5},
		{"matrix", Shape{3, 4}, 12},
		{"3d", Shape{2, 3, 4}, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.NumElements())
		})
	}
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{2, 3}.Validate())
	assert.NoError(t, Shape{}.Validate(), "empty shape is a scalar")
	assert.Error(t, Shape{2, 0}.Validate())
	assert.Error(t, Shape{-1, 3}.Validate())
}

func TestNewRawZeroInitialized(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32)
	require.NoError(t, err)

	assert.Equal(t, Shape{2, 3}, raw.Shape())
	assert.Equal(t, Float32, raw.DType())
	assert.Equal(t, 6, raw.NumElements())
	for i := 0; i < 6; i++ {
		assert.Zero(t, raw.At(i))
	}
}

func TestFromFloat32RoundTrip(t *testing.T) {
	values := []float32{1, -2, 3.5, 0}
	raw, err := FromFloat32(values, Shape{2, 2})
	require.NoError(t, err)

	got, err := raw.AsFloat32()
	require.NoError(t, err)
	assert.Equal(t, values, got)

	_, err = FromFloat32(values, Shape{3})
	assert.Error(t, err, "length mismatch must be rejected")
}

func TestCopyFromChecksShapeAndDType(t *testing.T) {
	dst, err := NewRaw(Shape{2, 2}, Float32)
	require.NoError(t, err)

	src, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)
	require.NoError(t, dst.CopyFrom(src))
	assert.True(t, dst.Equal(src))

	wrongShape, err := NewRaw(Shape{4}, Float32)
	require.NoError(t, err)
	assert.Error(t, dst.CopyFrom(wrongShape))

	wrongType, err := NewRaw(Shape{2, 2}, Int32)
	require.NoError(t, err)
	assert.Error(t, dst.CopyFrom(wrongType))
}

func TestCloneIsIndependent(t *testing.T) {
	raw, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)

	clone := raw.Clone()
	clone.Set(0, 99)

	assert.Equal(t, float32(1), raw.At(0))
	assert.Equal(t, float32(99), clone.At(0))
}

func TestFloat16Conversion(t *testing.T) {
	raw, err := FromFloat32([]float32{0, 1, -1, 0.5}, Shape{4})
	require.NoError(t, err)

	half, err := raw.ToFloat16()
	require.NoError(t, err)
	assert.Equal(t, Float16, half.DType())

	// These values are exactly representable in float16.
	got, err := half.AsFloat32()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, -1, 0.5}, got)

	intTensor, err := NewRaw(Shape{4}, Int64)
	require.NoError(t, err)
	_, err = intTensor.ToFloat16()
	assert.Error(t, err)
}

func TestDataAliasesStorage(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Float32)
	require.NoError(t, err)

	other, err := FromFloat32([]float32{7, 8}, Shape{2})
	require.NoError(t, err)
	copy(raw.Data(), other.Data())

	assert.Equal(t, float32(7), raw.At(0))
	assert.Equal(t, float32(8), raw.At(1))
}

func TestDataTypeSize(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 4, Int32.Size())
	assert.Equal(t, 8, Int64.Size())
}
