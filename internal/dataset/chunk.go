package dataset

import (
	"fmt"

	"github.com/born-ml/spinload/internal/unpack"
)

// Sample is one Monte Carlo observation: a packed spin configuration, the
// scalar value attached to it and the number of times it was visited.
type Sample[S unpack.Container] struct {
	Spin  S
	Value float64
	Count int64
}

// Chunk is the immutable output of one Markov chain. A *Chunk is a shared
// handle: any number of datasets may hold it, and nobody mutates it after
// NewChunk returns.
type Chunk[S unpack.Container] struct {
	numberSpins int
	samples     []Sample[S]
}

// NewChunk publishes samples as a chunk of numberSpins-spin configurations.
// The chunk takes ownership of samples; the caller must not modify the slice
// afterwards.
func NewChunk[S unpack.Container](numberSpins int, samples []Sample[S]) (*Chunk[S], error) {
	if numberSpins < 0 || numberSpins > unpack.Width[S]() {
		return nil, fmt.Errorf("%w: %d spins, container holds at most %d", ErrInvalidChunk, numberSpins, unpack.Width[S]())
	}
	for i := range samples {
		if samples[i].Count < 0 {
			return nil, fmt.Errorf("%w: sample %d has negative count %d", ErrInvalidChunk, i, samples[i].Count)
		}
	}
	return &Chunk[S]{numberSpins: numberSpins, samples: samples}, nil
}

// NumberSpins returns the number of meaningful bits per configuration.
func (c *Chunk[S]) NumberSpins() int { return c.numberSpins }

// Len returns the number of samples.
func (c *Chunk[S]) Len() int { return len(c.samples) }

// Samples returns the chunk's samples. The slice is shared and read-only.
func (c *Chunk[S]) Samples() []Sample[S] { return c.samples }
