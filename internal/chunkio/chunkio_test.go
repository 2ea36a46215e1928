package chunkio

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/spinload/internal/dataset"
	"github.com/born-ml/spinload/internal/loader"
	"github.com/born-ml/spinload/internal/sampler"
	"github.com/born-ml/spinload/internal/unpack"
)

func TestParquetRoundTrip64(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	chunk, err := Synthesize[uint64](rng, 21, 50)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, chunk))

	got, err := ReadChunk[uint64](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 21, got.NumberSpins())
	assert.Equal(t, chunk.Samples(), got.Samples())
}

func TestParquetRoundTrip512(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	chunk, err := Synthesize[unpack.Bits512](rng, 300, 10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, chunk))

	got, err := ReadChunk[unpack.Bits512](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, chunk.Samples(), got.Samples())
}

func TestParquetEmptyChunkKeepsSpinCount(t *testing.T) {
	chunk, err := dataset.NewChunk[uint64](12, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, chunk))

	got, err := ReadChunk[uint64](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 12, got.NumberSpins())
	assert.Equal(t, 0, got.Len())
}

func TestParquetWrongContainer(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	chunk, err := Synthesize[uint64](rng, 8, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, chunk))

	_, err = ReadChunk[unpack.Bits512](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.ErrorIs(t, err, ErrCorruptChunk)
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(4))
	sizes := []int{5, 3, 4}
	paths := make([]string, len(sizes))
	var want []dataset.Sample[uint64]
	for i, size := range sizes {
		chunk, err := Synthesize[uint64](rng, 10, size)
		require.NoError(t, err)
		want = append(want, chunk.Samples()...)
		paths[i] = filepath.Join(dir, "chunk-"+strconv.Itoa(i)+".parquet")
		require.NoError(t, SaveChunk(paths[i], chunk))
	}

	ds, err := LoadDataset[uint64](context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, 12, ds.Size())
	assert.Equal(t, []int{5, 8, 12}, ds.CumulativeSizes())
	for i := range want {
		assert.Equal(t, want[i], *ds.At(i))
	}
}

func TestLoadFilesMissing(t *testing.T) {
	_, err := LoadFiles[uint64](context.Background(), []string{filepath.Join(t.TempDir(), "nope.parquet")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSynthesizeClearsHighBits(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	chunk, err := Synthesize[uint64](rng, 5, 100)
	require.NoError(t, err)
	for _, s := range chunk.Samples() {
		assert.Zero(t, s.Spin>>5)
		assert.GreaterOrEqual(t, s.Count, int64(1))
	}
}

func TestBatchRecord(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	chunk, err := Synthesize[uint64](rng, 9, 7)
	require.NoError(t, err)
	ds, err := dataset.New(chunk)
	require.NoError(t, err)

	for _, tr := range []loader.Transform{loader.Identity, loader.Sign} {
		s, err := sampler.New(ds.Size(), 4)
		require.NoError(t, err)
		l, err := loader.New(ds, s, tr)
		require.NoError(t, err)

		_, _ = l.Next()
		b, ok := l.Next()
		require.True(t, ok)
		require.Equal(t, 3, b.Len())

		mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
		rec := BatchRecord(mem, b)
		assert.Equal(t, int64(3), rec.NumRows())
		assert.Equal(t, int64(3), rec.NumCols())

		spins := rec.Column(0).(*array.FixedSizeList)
		assert.Equal(t, int32(9), spins.DataType().(*arrow.FixedSizeListType).Len())
		assert.Equal(t, b.Spins(), spins.ListValues().(*array.Float32).Float32Values())

		if tr == loader.Sign {
			assert.Equal(t, b.Labels(), rec.Column(1).(*array.Int64).Int64Values())
		} else {
			assert.Equal(t, b.FloatValues(), rec.Column(1).(*array.Float32).Float32Values())
		}
		assert.Equal(t, b.Counts(), rec.Column(2).(*array.Int64).Int64Values())

		transform, ok := rec.Schema().Metadata().GetValue("transform")
		require.True(t, ok)
		assert.Equal(t, tr.String(), transform)

		rec.Release()
		mem.AssertSize(t, 0)
	}
}

func TestStreamWriter(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	chunk, err := Synthesize[uint64](rng, 6, 10)
	require.NoError(t, err)
	ds, err := dataset.New(chunk)
	require.NoError(t, err)
	s, err := sampler.New(ds.Size(), 4)
	require.NoError(t, err)
	l, err := loader.New(ds, s, loader.Amplitude)
	require.NoError(t, err)

	var buf bytes.Buffer
	sw := NewStreamWriter(&buf, ds.NumberSpins(), l.Transform())
	for b := range l.All() {
		require.NoError(t, sw.Write(b))
	}
	require.NoError(t, sw.Close())

	r, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Release()

	var rows []int64
	for r.Next() {
		rows = append(rows, r.Record().NumRows())
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{4, 4, 2}, rows)
}

func TestBatchRecordZeroSpins(t *testing.T) {
	chunk, err := dataset.NewChunk(0, []dataset.Sample[uint64]{
		{Value: -1.5, Count: 2},
		{Value: 3, Count: 1},
	})
	require.NoError(t, err)
	ds, err := dataset.New(chunk)
	require.NoError(t, err)
	s, err := sampler.New(ds.Size(), 2)
	require.NoError(t, err)
	l, err := loader.New(ds, s, loader.Sign)
	require.NoError(t, err)

	b, ok := l.Next()
	require.True(t, ok)

	rec := BatchRecord(memory.NewGoAllocator(), b)
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())
	require.Equal(t, int64(2), rec.NumCols())
	assert.Equal(t, "value", rec.ColumnName(0))
	assert.Equal(t, []int64{-1, 1}, rec.Column(0).(*array.Int64).Int64Values())
	assert.Equal(t, []int64{2, 1}, rec.Column(1).(*array.Int64).Int64Values())

	n, ok := rec.Schema().Metadata().GetValue("number_spins")
	require.True(t, ok)
	assert.Equal(t, "0", n)

	var buf bytes.Buffer
	sw := NewStreamWriter(&buf, 0, loader.Sign)
	require.NoError(t, sw.Write(b))
	require.NoError(t, sw.Close())
	assert.Positive(t, buf.Len())
}
