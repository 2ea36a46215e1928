// Package sampler produces batches of dataset indices, sequentially or in a
// freshly shuffled order each epoch.
package sampler

import (
	"errors"
	"fmt"
	"math/rand"
)

// Construction errors.
var (
	ErrBatchSize = errors.New("sampler: batch size must be at least 1")
	ErrSize      = errors.New("sampler: size must not be negative")
)

// Option configures an IndexSampler.
type Option func(*IndexSampler)

// WithShuffle makes every Reset draw a new uniform permutation.
func WithShuffle(shuffle bool) Option {
	return func(s *IndexSampler) { s.shuffle = shuffle }
}

// WithIgnoreLast drops the final batch of an epoch when it is shorter than
// the batch size.
func WithIgnoreLast(ignore bool) Option {
	return func(s *IndexSampler) { s.ignoreLast = ignore }
}

// WithSeed seeds the shuffling RNG. Any negative seed, conventionally -1,
// picks a random one.
func WithSeed(seed int64) Option {
	return func(s *IndexSampler) { s.seed = seed }
}

// IndexSampler iterates over batches of indices in [0, size).
// It is not safe for concurrent use.
type IndexSampler struct {
	indices    []int
	cursor     int
	batchSize  int
	shuffle    bool
	ignoreLast bool
	seed       int64
	rng        *rand.Rand
}

// New creates a sampler over size indices and performs the initial Reset.
func New(size, batchSize int, opts ...Option) (*IndexSampler, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBatchSize, batchSize)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrSize, size)
	}
	s := &IndexSampler{
		indices:   make([]int, size),
		batchSize: batchSize,
		seed:      -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.indices {
		s.indices[i] = i
	}
	if s.shuffle {
		if s.seed >= 0 {
			s.rng = rand.New(rand.NewSource(s.seed)) //nolint:gosec // Deterministic seed requested
		} else {
			s.rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // Shuffling, not cryptography
		}
	}
	s.Reset()
	return s, nil
}

// Size returns the number of indices per epoch.
func (s *IndexSampler) Size() int { return len(s.indices) }

// BatchSize returns the maximum length of a batch.
func (s *IndexSampler) BatchSize() int { return s.batchSize }

// Shuffle reports whether indices are shuffled on Reset.
func (s *IndexSampler) Shuffle() bool { return s.shuffle }

// IgnoreLast reports whether a short final batch is dropped.
func (s *IndexSampler) IgnoreLast() bool { return s.ignoreLast }

// Remaining returns how many indices of the current epoch have not been
// handed out.
func (s *IndexSampler) Remaining() int { return len(s.indices) - s.cursor }

// Reset starts a new epoch. When shuffling, the permutation is regenerated;
// the previous order is not reused.
func (s *IndexSampler) Reset() {
	s.cursor = 0
	if s.shuffle {
		s.rng.Shuffle(len(s.indices), func(i, j int) {
			s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
		})
	}
}

// Next returns the next batch of indices, or an empty slice once the epoch is
// exhausted. The slice aliases the sampler's permutation: callers must not
// modify it, and it is only meaningful until the next Reset.
func (s *IndexSampler) Next() []int {
	remaining := len(s.indices) - s.cursor
	if remaining == 0 || (s.ignoreLast && remaining < s.batchSize) {
		return nil
	}
	n := min(remaining, s.batchSize)
	batch := s.indices[s.cursor : s.cursor+n : s.cursor+n]
	s.cursor += n
	return batch
}
