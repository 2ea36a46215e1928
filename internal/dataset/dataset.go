// Package dataset concatenates Monte Carlo sample chunks into one randomly
// accessible sequence without copying them.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/born-ml/spinload/internal/unpack"
)

// Construction and access errors.
var (
	ErrNoChunks     = errors.New("dataset: at least one chunk is required")
	ErrNilChunk     = errors.New("dataset: nil chunk")
	ErrSpinMismatch = errors.New("dataset: chunks disagree on the number of spins")
	ErrOutOfRange   = errors.New("dataset: index out of range")
	ErrInvalidChunk = errors.New("dataset: invalid chunk")
)

// Dataset is a virtual concatenation of chunks. It is immutable after New and
// safe for concurrent readers.
//
// For chunk sizes 5, 3 and 4 the cumulative sizes are [5, 8, 12]; index 7
// resolves to chunk 1, offset 7-5 = 2.
type Dataset[S unpack.Container] struct {
	chunks   []*Chunk[S]
	cumSizes []int
}

// New builds a dataset over chunks. All chunks must report the same number of
// spins. Chunks with no samples are allowed.
func New[S unpack.Container](chunks ...*Chunk[S]) (*Dataset[S], error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	cumSizes := make([]int, len(chunks))
	total := 0
	for i, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("%w at position %d", ErrNilChunk, i)
		}
		if c.NumberSpins() != chunks[0].NumberSpins() {
			return nil, fmt.Errorf("%w: chunk %d has %d spins, chunk 0 has %d",
				ErrSpinMismatch, i, c.NumberSpins(), chunks[0].NumberSpins())
		}
		total += c.Len()
		cumSizes[i] = total
	}
	return &Dataset[S]{
		chunks:   append([]*Chunk[S](nil), chunks...),
		cumSizes: cumSizes,
	}, nil
}

// Size returns the total number of samples.
func (d *Dataset[S]) Size() int { return d.cumSizes[len(d.cumSizes)-1] }

// NumberSpins returns the number of spins shared by all chunks.
func (d *Dataset[S]) NumberSpins() int { return d.chunks[0].NumberSpins() }

// NumChunks returns the number of concatenated chunks.
func (d *Dataset[S]) NumChunks() int { return len(d.chunks) }

// Chunks returns the chunk handles. The slice must not be modified.
func (d *Dataset[S]) Chunks() []*Chunk[S] { return d.chunks }

// CumulativeSizes returns the prefix sums of the chunk sizes. The slice must
// not be modified.
func (d *Dataset[S]) CumulativeSizes() []int { return d.cumSizes }

// Locate maps a global index to (chunk, offset within chunk).
// The precondition 0 <= i < Size() is not checked.
func (d *Dataset[S]) Locate(i int) (chunk, offset int) {
	if len(d.chunks) == 1 {
		return 0, i
	}
	// First cumulative size strictly greater than i. Empty chunks share their
	// predecessor's value and are skipped over.
	chunk = sort.Search(len(d.cumSizes), func(k int) bool { return d.cumSizes[k] > i })
	if chunk == 0 {
		return 0, i
	}
	return chunk, i - d.cumSizes[chunk-1]
}

// At returns the i'th sample without a bounds check. Callers must have
// validated 0 <= i < Size() already.
func (d *Dataset[S]) At(i int) *Sample[S] {
	c, off := d.Locate(i)
	return &d.chunks[c].samples[off]
}

// Get returns the i'th sample, or ErrOutOfRange.
func (d *Dataset[S]) Get(i int) (*Sample[S], error) {
	if i < 0 || i >= d.Size() {
		return nil, fmt.Errorf("%w: %d; expected index in [0, %d)", ErrOutOfRange, i, d.Size())
	}
	return d.At(i), nil
}

// Clone returns a dataset sharing the same chunks. Chunk contents are never
// copied.
func (d *Dataset[S]) Clone() *Dataset[S] {
	return &Dataset[S]{
		chunks:   append([]*Chunk[S](nil), d.chunks...),
		cumSizes: append([]int(nil), d.cumSizes...),
	}
}
