package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/spinload/internal/chunkio"
	"github.com/born-ml/spinload/internal/unpack"
)

func generateCmd() *cli.Command {
	var (
		outDir      string
		chunks      int64
		samples     int64
		numberSpins int64
		seed        int64
		wide        bool
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Write random chunk files for testing and benchmarking",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: ".", Destination: &outDir},
			&cli.Int64Flag{Name: "chunks", Usage: "number of chunk files", Value: 4, Destination: &chunks},
			&cli.Int64Flag{Name: "samples", Usage: "samples per chunk", Value: 10000, Destination: &samples},
			&cli.Int64Flag{Name: "spins", Usage: "spins per configuration", Value: 64, Destination: &numberSpins},
			&cli.Int64Flag{Name: "seed", Usage: "random seed (negative for random)", Value: -1, Destination: &seed},
			&cli.BoolFlag{Name: "wide", Usage: "use 512-bit containers", Destination: &wide},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if chunks < 1 || samples < 0 {
				return fmt.Errorf("chunks must be at least 1 and samples must not be negative")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}
			if seed < 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))

			var paths []string
			var err error
			if wide {
				paths, err = generate[unpack.Bits512](ctx, rng, outDir, int(chunks), int(samples), int(numberSpins))
			} else {
				paths, err = generate[uint64](ctx, rng, outDir, int(chunks), int(samples), int(numberSpins))
			}
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.Root().Writer, p)
			}
			return nil
		},
	}
}

func generate[S unpack.Container](ctx context.Context, rng *rand.Rand, dir string, chunks, samples, numberSpins int) ([]string, error) {
	paths := make([]string, 0, chunks)
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := chunkio.Synthesize[S](rng, numberSpins, samples)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("chunk-%04d.parquet", i))
		if err := chunkio.SaveChunk(path, chunk); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
