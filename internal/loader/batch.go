package loader

import (
	"fmt"

	"github.com/born-ml/spinload/internal/tensor"
)

// Batch is a block of decoded samples: a [Len × NumberSpins] float32 spin
// matrix plus parallel value and count vectors.
//
// A Batch returned by DataLoader.Next aliases storage owned by the loader. It
// stays valid only until the next call to Next or Reset; use Copy to keep the
// data longer.
type Batch struct {
	spins       *tensor.RawTensor
	values      *tensor.RawTensor
	counts      *tensor.RawTensor
	numberSpins int
	transform   Transform
}

func newBatch(batchSize, numberSpins int, t Transform) (*Batch, error) {
	spins, err := tensor.NewRaw(tensor.Shape{batchSize, numberSpins}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate spins: %w", err)
	}
	values, err := tensor.NewRaw(tensor.Shape{batchSize}, t.valueType())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate values: %w", err)
	}
	counts, err := tensor.NewRaw(tensor.Shape{batchSize}, tensor.Int64)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate counts: %w", err)
	}
	return &Batch{
		spins:       spins,
		values:      values,
		counts:      counts,
		numberSpins: numberSpins,
		transform:   t,
	}, nil
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int { return b.counts.Shape()[0] }

// NumberSpins returns the row width of the spin matrix.
func (b *Batch) NumberSpins() int { return b.numberSpins }

// Transform returns the transform the values were produced with.
func (b *Batch) Transform() Transform { return b.transform }

// Spins returns the spin matrix in row-major order.
func (b *Batch) Spins() []float32 { return b.spins.AsFloat32() }

// Row returns the decoded spins of sample r.
func (b *Batch) Row(r int) []float32 {
	return b.Spins()[r*b.numberSpins : (r+1)*b.numberSpins]
}

// FloatValues returns the values of an Identity or Amplitude batch.
// Panics for Sign batches.
func (b *Batch) FloatValues() []float32 { return b.values.AsFloat32() }

// Labels returns the class labels of a Sign batch.
// Panics for Identity and Amplitude batches.
func (b *Batch) Labels() []int64 { return b.values.AsInt64() }

// Counts returns how often each sample was visited by the Markov chain.
func (b *Batch) Counts() []int64 { return b.counts.AsInt64() }

// SpinsTensor returns the [Len, NumberSpins] spin tensor.
func (b *Batch) SpinsTensor() *tensor.RawTensor { return b.spins }

// ValuesTensor returns the [Len] value tensor (float32 or int64).
func (b *Batch) ValuesTensor() *tensor.RawTensor { return b.values }

// CountsTensor returns the [Len] int64 count tensor.
func (b *Batch) CountsTensor() *tensor.RawTensor { return b.counts }

// Copy returns a batch with its own storage.
func (b *Batch) Copy() *Batch {
	return &Batch{
		spins:       b.spins.Copy(),
		values:      b.values.Copy(),
		counts:      b.counts.Copy(),
		numberSpins: b.numberSpins,
		transform:   b.transform,
	}
}

// narrow returns a view of the first n samples.
func (b *Batch) narrow(n int) (*Batch, error) {
	spins, err := b.spins.Narrow(0, n)
	if err != nil {
		return nil, err
	}
	values, err := b.values.Narrow(0, n)
	if err != nil {
		spins.Release()
		return nil, err
	}
	counts, err := b.counts.Narrow(0, n)
	if err != nil {
		spins.Release()
		values.Release()
		return nil, err
	}
	return &Batch{
		spins:       spins,
		values:      values,
		counts:      counts,
		numberSpins: b.numberSpins,
		transform:   b.transform,
	}, nil
}

func (b *Batch) release() {
	b.spins.Release()
	b.values.Release()
	b.counts.Release()
}
