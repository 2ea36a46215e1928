// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/spinload/internal/tensor"
)

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int64   DataType = tensor.Int64
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3} is a matrix of 2 rows and 3 columns.
type Shape = tensor.Shape

// RawTensor is the low-level tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType()
//   - Typed data access via AsFloat32(), AsInt64()
//   - Shared views via Narrow() and Clone()
//   - Reference counting via Release()
type RawTensor = tensor.RawTensor

// NewRaw allocates a zeroed tensor of the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}
