// Package loader turns a dataset of packed spin samples into a restartable
// sequence of reusable training batches.
//
// Example:
//
//	ds, _ := dataset.New(chunks...)
//	s, _ := sampler.New(ds.Size(), 256, sampler.WithShuffle(true))
//	l, _ := loader.New(ds, s, loader.Sign)
//	for batch := range l.All() {
//	    train(batch.Spins(), batch.Labels())
//	}
package loader

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/born-ml/spinload/internal/dataset"
	"github.com/born-ml/spinload/internal/metrics"
	"github.com/born-ml/spinload/internal/parallel"
	"github.com/born-ml/spinload/internal/sampler"
	"github.com/born-ml/spinload/internal/unpack"
)

// Construction errors.
var (
	ErrSizeMismatch = errors.New("loader: sampler size does not match dataset size")
	ErrTransform    = errors.New("loader: invalid transform")
	ErrNilInput     = errors.New("loader: dataset and sampler are required")
)

// Option configures a DataLoader.
type Option func(*options)

type options struct {
	parallel parallel.Config
	logger   zerolog.Logger
	metrics  *metrics.Loader
	name     string
}

// WithParallel sets how row decoding is spread over goroutines.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) { o.parallel = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the collectors the loader reports to.
func WithMetrics(m *metrics.Loader) Option {
	return func(o *options) { o.metrics = m }
}

// WithName labels the loader in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// DataLoader owns a dataset, a sampler and one reusable batch.
// It is not safe for concurrent use.
type DataLoader[S unpack.Container] struct {
	dataset   *dataset.Dataset[S]
	sampler   *sampler.IndexSampler
	transform Transform
	batch     *Batch
	short     *Batch
	spins     []S
	opts      options
}

// New creates a loader. The sampler must cover exactly the dataset's indices.
// The batch storage is allocated here, once.
func New[S unpack.Container](ds *dataset.Dataset[S], s *sampler.IndexSampler, t Transform, opts ...Option) (*DataLoader[S], error) {
	if ds == nil || s == nil {
		return nil, ErrNilInput
	}
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrTransform, int(t))
	}
	if s.Size() != ds.Size() {
		return nil, fmt.Errorf("%w: sampler covers %d indices, dataset holds %d samples", ErrSizeMismatch, s.Size(), ds.Size())
	}

	o := options{
		parallel: parallel.Sequential(),
		logger:   zerolog.Nop(),
		name:     "default",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewLoader(nil)
	}

	batch, err := newBatch(s.BatchSize(), ds.NumberSpins(), t)
	if err != nil {
		return nil, err
	}

	o.metrics.DatasetSamples.WithLabelValues(o.name).Set(float64(ds.Size()))
	o.metrics.DatasetChunks.WithLabelValues(o.name).Set(float64(ds.NumChunks()))
	o.logger.Debug().
		Str("loader", o.name).
		Int("samples", ds.Size()).
		Int("chunks", ds.NumChunks()).
		Int("number_spins", ds.NumberSpins()).
		Int("batch_size", s.BatchSize()).
		Stringer("transform", t).
		Msg("data loader created")

	return &DataLoader[S]{
		dataset:   ds,
		sampler:   s,
		transform: t,
		batch:     batch,
		spins:     make([]S, s.BatchSize()),
		opts:      o,
	}, nil
}

// Dataset returns the dataset for direct random access.
func (l *DataLoader[S]) Dataset() *dataset.Dataset[S] { return l.dataset }

// Sampler returns the index sampler.
func (l *DataLoader[S]) Sampler() *sampler.IndexSampler { return l.sampler }

// Transform returns the value transform.
func (l *DataLoader[S]) Transform() Transform { return l.transform }

// Reset starts a new epoch. Batches returned earlier become stale.
func (l *DataLoader[S]) Reset() {
	l.sampler.Reset()
	l.opts.metrics.EpochsTotal.WithLabelValues(l.opts.name).Inc()
	l.opts.logger.Debug().Str("loader", l.opts.name).Msg("epoch reset")
}

// Next fills and returns the next batch. The second result is false once the
// epoch is exhausted; no batch is produced then.
//
// The returned batch aliases the loader's storage and is overwritten by the
// following call. A short final batch is a view of the first rows of the same
// storage.
func (l *DataLoader[S]) Next() (*Batch, bool) {
	indices := l.sampler.Next()
	if len(indices) == 0 {
		return nil, false
	}
	start := time.Now()
	n := len(indices)

	counts := l.batch.Counts()
	if l.transform == Sign {
		labels := l.batch.Labels()
		for r, i := range indices {
			// Indices come from a sampler of the dataset's size.
			s := l.dataset.At(i)
			l.spins[r] = s.Spin
			labels[r] = SignLabel(s.Value)
			counts[r] = s.Count
		}
	} else {
		values := l.batch.FloatValues()
		for r, i := range indices {
			s := l.dataset.At(i)
			l.spins[r] = s.Spin
			values[r] = l.transform.floatValue(s.Value)
			counts[r] = s.Count
		}
	}

	numberSpins := l.dataset.NumberSpins()
	dst := unpack.NewMatrix(l.batch.Spins()[:n*numberSpins], n, numberSpins)
	if err := unpack.RowsParallel(l.spins[:n], 1, dst, l.opts.parallel); err != nil {
		// The matrix is built from the batch's own shape; this cannot fail.
		panic(fmt.Sprintf("loader: decoding batch: %v", err))
	}

	out := l.batch
	if n < l.sampler.BatchSize() {
		out = l.shortView(n)
	}

	l.opts.metrics.DecodeSeconds.WithLabelValues(l.opts.name).Observe(time.Since(start).Seconds())
	l.opts.metrics.BatchesTotal.WithLabelValues(l.opts.name).Inc()
	l.opts.metrics.SamplesTotal.WithLabelValues(l.opts.name).Add(float64(n))
	return out, true
}

// shortView returns the first n rows of the batch storage, reusing the
// previous view when it already has that length.
func (l *DataLoader[S]) shortView(n int) *Batch {
	if l.short != nil && l.short.Len() == n {
		return l.short
	}
	if l.short != nil {
		l.short.release()
	}
	view, err := l.batch.narrow(n)
	if err != nil {
		panic(fmt.Sprintf("loader: narrowing batch to %d rows: %v", n, err))
	}
	l.short = view
	return view
}

// All returns a lazy sequence over one epoch. Each iteration of the sequence
// starts with Reset, so ranging over it again replays a fresh epoch.
func (l *DataLoader[S]) All() iter.Seq[*Batch] {
	return func(yield func(*Batch) bool) {
		l.Reset()
		for b, ok := l.Next(); ok; b, ok = l.Next() {
			if !yield(b) {
				return
			}
		}
	}
}
