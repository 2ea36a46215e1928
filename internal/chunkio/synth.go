package chunkio

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/spinload/internal/dataset"
	"github.com/born-ml/spinload/internal/unpack"
)

// Synthesize draws a chunk of size uniformly random configurations with
// normally distributed values and counts in [1, 4]. Bits above numberSpins
// are cleared. It stands in for a Monte Carlo run in tests and benchmarks.
func Synthesize[S unpack.Container](rng *rand.Rand, numberSpins, size int) (*dataset.Chunk[S], error) {
	if numberSpins < 0 || numberSpins > unpack.Width[S]() || size < 0 {
		return nil, fmt.Errorf("%w: %d spins, %d samples", dataset.ErrInvalidChunk, numberSpins, size)
	}
	samples := make([]dataset.Sample[S], size)
	for i := range samples {
		row := make([]float32, numberSpins)
		for k := range row {
			row[k] = float32(2*rng.Intn(2) - 1)
		}
		samples[i] = dataset.Sample[S]{
			Spin:  unpack.Pack[S](row),
			Value: rng.NormFloat64(),
			Count: int64(1 + rng.Intn(4)),
		}
	}
	return dataset.NewChunk(numberSpins, samples)
}
