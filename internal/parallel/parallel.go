// Package parallel splits row-wise work of the batch pipeline across goroutines.
package parallel

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum rows per goroutine to avoid overhead.
}

// DefaultConfig returns defaults derived from the host CPU.
//
// Physical cores are preferred over logical ones: decoding is bound by store
// bandwidth and hyper-threads do not add any.
func DefaultConfig() Config {
	n := cpuid.CPU.PhysicalCores
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a config that runs everything on the calling goroutine.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// Ranges returns the contiguous [start, end) ranges For would hand to workers.
// A single range covering [0, n) is returned when parallelism does not apply.
func Ranges(n int, cfg Config) [][2]int {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return [][2]int{{0, n}}
	}
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	out := make([][2]int, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		out = append(out, [2]int{start, min(start+chunkSize, n)})
	}
	return out
}

// ForRange executes f(start, end) for each range produced by Ranges and waits
// for all of them.
func ForRange(n int, f func(start, end int), cfg Config) {
	ranges := Ranges(n, cfg)
	if len(ranges) == 1 {
		f(ranges[0][0], ranges[0][1])
		return
	}

	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(r[0], r[1])
	}
	wg.Wait()
}
