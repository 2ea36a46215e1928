package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangesCoverEverythingOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 3}
	for _, n := range []int{1, 2, 3, 7, 12, 13, 100} {
		ranges := Ranges(n, cfg)
		require.NotEmpty(t, ranges)
		next := 0
		for _, r := range ranges {
			assert.Equal(t, next, r[0], "n=%d", n)
			assert.Less(t, r[0], r[1], "n=%d", n)
			next = r[1]
		}
		assert.Equal(t, n, next, "n=%d", n)
	}
}

func TestRangesSequentialFallback(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 10}}, Ranges(10, Sequential()))
	assert.Equal(t, [][2]int{{0, 10}}, Ranges(10, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}))
	assert.Nil(t, Ranges(0, DefaultConfig()))
}

func TestForRangeVisitsEachIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 2}
	hits := make([]int32, 37)
	ForRange(len(hits), func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	}, cfg)
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.GreaterOrEqual(t, cfg.NumWorkers, 1)
	assert.Equal(t, cfg.NumWorkers > 1, cfg.Enabled)
}
