// Package chunkio persists sample chunks as Parquet files and exports
// batches as Arrow records.
package chunkio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/spinload/internal/dataset"
	"github.com/born-ml/spinload/internal/unpack"
)

// ErrCorruptChunk is returned for files whose rows do not form a valid chunk.
var ErrCorruptChunk = errors.New("chunkio: corrupt chunk file")

// numberSpinsKey stores the chunk's spin count in the file footer so that
// chunks without samples keep it too.
const numberSpinsKey = "spinload.number_spins"

// SampleRecord is one Parquet row. Spins holds 1 word for 64-bit containers
// and 8 words for 512-bit ones, least significant word first.
type SampleRecord struct {
	NumberSpins int32    `parquet:"number_spins"`
	Spins       []uint64 `parquet:"spins"`
	Value       float64  `parquet:"value"`
	Count       int64    `parquet:"count"`
}

func words[S unpack.Container]() int { return unpack.Width[S]() / 64 }

func toWords[S unpack.Container](s S) []uint64 {
	switch v := any(s).(type) {
	case uint64:
		return []uint64{v}
	case unpack.Bits512:
		return v[:]
	}
	return nil
}

func fromWords[S unpack.Container](w []uint64) S {
	var out S
	switch p := any(&out).(type) {
	case *uint64:
		*p = w[0]
	case *unpack.Bits512:
		copy(p[:], w)
	}
	return out
}

// WriteChunk writes c as a single zstd-compressed Parquet file.
func WriteChunk[S unpack.Container](w io.Writer, c *dataset.Chunk[S]) error {
	pw := parquet.NewGenericWriter[SampleRecord](w,
		parquet.Compression(&parquet.Zstd),
		parquet.KeyValueMetadata(numberSpinsKey, strconv.Itoa(c.NumberSpins())),
	)

	samples := c.Samples()
	rows := make([]SampleRecord, len(samples))
	for i := range samples {
		rows[i] = SampleRecord{
			NumberSpins: int32(c.NumberSpins()),
			Spins:       toWords(samples[i].Spin),
			Value:       samples[i].Value,
			Count:       samples[i].Count,
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// ReadChunk reads a chunk written by WriteChunk. Files without the spin
// count in their metadata take it from the first row.
func ReadChunk[S unpack.Container](r io.ReaderAt, size int64) (*dataset.Chunk[S], error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	pr := parquet.NewGenericReader[SampleRecord](pf)
	defer pr.Close()

	rows := make([]SampleRecord, pr.NumRows())
	if n, err := pr.Read(rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	} else if n != len(rows) {
		return nil, fmt.Errorf("%w: read %d of %d rows", ErrCorruptChunk, n, len(rows))
	}

	numberSpins := 0
	if v, ok := pf.Lookup(numberSpinsKey); ok {
		if numberSpins, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%w: bad %s metadata %q", ErrCorruptChunk, numberSpinsKey, v)
		}
	} else if len(rows) > 0 {
		numberSpins = int(rows[0].NumberSpins)
	}
	samples := make([]dataset.Sample[S], len(rows))
	for i, row := range rows {
		if int(row.NumberSpins) != numberSpins {
			return nil, fmt.Errorf("%w: row %d has %d spins, chunk has %d", ErrCorruptChunk, i, row.NumberSpins, numberSpins)
		}
		if len(row.Spins) != words[S]() {
			return nil, fmt.Errorf("%w: row %d holds %d words, expected %d", ErrCorruptChunk, i, len(row.Spins), words[S]())
		}
		samples[i] = dataset.Sample[S]{
			Spin:  fromWords[S](row.Spins),
			Value: row.Value,
			Count: row.Count,
		}
	}

	chunk, err := dataset.NewChunk(numberSpins, samples)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptChunk, err)
	}
	return chunk, nil
}

// SaveChunk writes c to path.
func SaveChunk[S unpack.Container](path string, c *dataset.Chunk[S]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteChunk(f, c); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// OpenChunk reads the chunk stored at path.
func OpenChunk[S unpack.Container](path string) (*dataset.Chunk[S], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	chunk, err := ReadChunk[S](f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chunk, nil
}

// LoadFiles reads every path concurrently and returns the chunks in path
// order. The first failure cancels the remaining reads.
func LoadFiles[S unpack.Container](ctx context.Context, paths []string) ([]*dataset.Chunk[S], error) {
	chunks := make([]*dataset.Chunk[S], len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := OpenChunk[S](path)
			if err != nil {
				return err
			}
			chunks[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// LoadDataset reads paths and concatenates them into a dataset.
func LoadDataset[S unpack.Container](ctx context.Context, paths []string) (*dataset.Dataset[S], error) {
	chunks, err := LoadFiles[S](ctx, paths)
	if err != nil {
		return nil, err
	}
	return dataset.New(chunks...)
}
