// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the storage type behind spinload batches.
//
// # Overview
//
// A RawTensor is a dense, row-major buffer with a shape and a data type.
// Batches produced by the loader hold three of them:
//   - spins:  Float32, shape (batch, numberSpins), entries in {-1, +1}
//   - values: Float32 or Int64 depending on the transform, shape (batch,)
//   - counts: Int64, shape (batch,)
//
// # Memory Management
//
// Buffers are reference-counted. Narrow and Clone return tensors that share
// storage with the receiver; Copy allocates a new buffer.
//
//	raw, _ := tensor.NewRaw(tensor.Shape{4, 16}, tensor.Float32)
//	head, _ := raw.Narrow(0, 2)  // rows 0 and 1, same storage
//	owned := head.Copy()         // private copy
//
// Tensors handed out by a loader are reused for the next batch. Call Copy
// to keep the contents.
package tensor
