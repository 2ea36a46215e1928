// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader provides the public API for turning packed spin samples
// into training batches.
//
// This package wraps the internal unpack, dataset, sampler and loader
// implementations and exports them under one import.
//
// Example usage:
//
//	import "github.com/born-ml/spinload/loader"
//
//	chunk, err := loader.NewChunk(16, samples)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ds, _ := loader.NewDataset(chunk)
//	s, _ := loader.NewSampler(ds.Size(), 128, loader.WithShuffle(true), loader.WithSeed(42))
//	l, _ := loader.New(ds, s, loader.Sign)
//
//	for batch := range l.All() {
//	    fmt.Println(batch.Len(), batch.Spins()[:16], batch.Labels()[0])
//	}
package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/born-ml/spinload/internal/dataset"
	"github.com/born-ml/spinload/internal/loader"
	"github.com/born-ml/spinload/internal/metrics"
	"github.com/born-ml/spinload/internal/parallel"
	"github.com/born-ml/spinload/internal/sampler"
	"github.com/born-ml/spinload/internal/unpack"
)

// Bits512 is a 512-bit spin container, least significant word first.
type Bits512 = unpack.Bits512

// Container is the set of supported spin containers: uint64 and Bits512.
type Container = unpack.Container

// Sample is one stored configuration with its value and count.
type Sample[S Container] = dataset.Sample[S]

// Chunk is an ordered run of samples sharing one spin count.
type Chunk[S Container] = dataset.Chunk[S]

// Dataset is a read-only concatenation of chunks.
type Dataset[S Container] = dataset.Dataset[S]

// IndexSampler hands out batches of dataset indices.
type IndexSampler = sampler.IndexSampler

// SamplerOption configures an IndexSampler.
type SamplerOption = sampler.Option

// DataLoader produces batches from a dataset and a sampler.
//
// Note: This is a type alias so that batches keep pointing at the
// internal tensor types without a wrapper layer.
type DataLoader[S Container] = loader.DataLoader[S]

// Batch is one decoded batch. It is reused by the next call to Next.
type Batch = loader.Batch

// Option configures a DataLoader.
type Option = loader.Option

// ParallelConfig controls how row decoding is spread over goroutines.
type ParallelConfig = parallel.Config

// Metrics holds the Prometheus collectors loaders report to. One Metrics can
// serve several loaders; series are labelled by WithName.
type Metrics = metrics.Loader

// Transform selects how sample values are turned into targets.
type Transform = loader.Transform

// Supported transforms.
const (
	Identity  Transform = loader.Identity
	Amplitude Transform = loader.Amplitude
	Sign      Transform = loader.Sign
)

// Errors returned by constructors.
var (
	ErrNoChunks     = dataset.ErrNoChunks
	ErrSpinMismatch = dataset.ErrSpinMismatch
	ErrOutOfRange   = dataset.ErrOutOfRange
	ErrBatchSize    = sampler.ErrBatchSize
	ErrSizeMismatch = loader.ErrSizeMismatch
	ErrTransform    = loader.ErrTransform
)

// Unpack writes the first n spins of x into out[:n] as -1 or +1.
func Unpack[S Container](x S, n int, out []float32) error {
	return unpack.Unpack(x, n, out)
}

// Pack encodes a row of spins. Entries equal to +1 become set bits.
func Pack[S Container](row []float32) S {
	return unpack.Pack[S](row)
}

// NewChunk validates samples and wraps them in a chunk.
func NewChunk[S Container](numberSpins int, samples []Sample[S]) (*Chunk[S], error) {
	return dataset.NewChunk(numberSpins, samples)
}

// NewDataset concatenates chunks in order.
func NewDataset[S Container](chunks ...*Chunk[S]) (*Dataset[S], error) {
	return dataset.New(chunks...)
}

// NewSampler creates a sampler over [0, size).
func NewSampler(size, batchSize int, opts ...SamplerOption) (*IndexSampler, error) {
	return sampler.New(size, batchSize, opts...)
}

// WithShuffle enables shuffling on every reset.
func WithShuffle(shuffle bool) SamplerOption { return sampler.WithShuffle(shuffle) }

// WithIgnoreLast drops the final short batch of every epoch.
func WithIgnoreLast(ignore bool) SamplerOption { return sampler.WithIgnoreLast(ignore) }

// WithSeed fixes the shuffle seed. A negative seed draws one from the clock.
func WithSeed(seed int64) SamplerOption { return sampler.WithSeed(seed) }

// New creates a loader over ds driven by s.
func New[S Container](ds *Dataset[S], s *IndexSampler, t Transform, opts ...Option) (*DataLoader[S], error) {
	return loader.New(ds, s, t, opts...)
}

// ParseTransform parses a transform name.
func ParseTransform(name string) (Transform, error) { return loader.ParseTransform(name) }

// DefaultParallel returns a parallel config sized to the machine.
func DefaultParallel() ParallelConfig { return parallel.DefaultConfig() }

// WithParallel sets how row decoding is spread over goroutines.
func WithParallel(cfg ParallelConfig) Option { return loader.WithParallel(cfg) }

// WithLogger sets the loader's logger.
func WithLogger(l zerolog.Logger) Option { return loader.WithLogger(l) }

// NewMetrics creates the loader collectors and registers them with reg.
// A nil reg keeps them in a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics { return metrics.NewLoader(reg) }

// WithMetrics makes the loader report to m.
func WithMetrics(m *Metrics) Option { return loader.WithMetrics(m) }

// WithName labels the loader in logs and metrics.
func WithName(name string) Option { return loader.WithName(name) }
