package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/spinload/internal/chunkio"
	"github.com/born-ml/spinload/internal/dataset"
	"github.com/born-ml/spinload/internal/unpack"
)

type chunkSummary struct {
	Path    string `json:"path"`
	Samples int    `json:"samples"`
}

type datasetSummary struct {
	Container       string         `json:"container"`
	NumberSpins     int            `json:"number_spins"`
	Size            int            `json:"size"`
	TotalCount      int64          `json:"total_count"`
	MeanValue       float64        `json:"mean_value"`
	CumulativeSizes []int          `json:"cumulative_sizes"`
	Chunks          []chunkSummary `json:"chunks"`
}

func inspectCmd() *cli.Command {
	var (
		asJSON bool
		wide   bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize a set of chunk files as one dataset",
		ArgsUsage: "FILES...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the summary as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "wide", Usage: "files hold 512-bit containers", Destination: &wide},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return errors.New("inspect: at least one chunk file is required")
			}

			var (
				summary datasetSummary
				err     error
			)
			if wide {
				summary, err = summarize[unpack.Bits512](ctx, paths)
			} else {
				summary, err = summarize[uint64](ctx, paths)
			}
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			if asJSON {
				data, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode summary: %w", err)
				}
				_, err = fmt.Fprintln(w, string(data))
				return err
			}
			printSummary(w, summary)
			return nil
		},
	}
}

func summarize[S unpack.Container](ctx context.Context, paths []string) (datasetSummary, error) {
	ds, err := chunkio.LoadDataset[S](ctx, paths)
	if err != nil {
		return datasetSummary{}, err
	}
	return describe(ds, paths), nil
}

func describe[S unpack.Container](ds *dataset.Dataset[S], paths []string) datasetSummary {
	s := datasetSummary{
		Container:       fmt.Sprintf("%d-bit", unpack.Width[S]()),
		NumberSpins:     ds.NumberSpins(),
		Size:            ds.Size(),
		CumulativeSizes: ds.CumulativeSizes(),
	}
	var sum float64
	for i, c := range ds.Chunks() {
		s.Chunks = append(s.Chunks, chunkSummary{Path: paths[i], Samples: c.Len()})
		for _, smp := range c.Samples() {
			sum += smp.Value
			s.TotalCount += smp.Count
		}
	}
	if s.Size > 0 {
		s.MeanValue = sum / float64(s.Size)
	}
	return s
}

func printSummary(w io.Writer, s datasetSummary) {
	fmt.Fprintf(w, "container:    %s\n", s.Container)
	fmt.Fprintf(w, "number spins: %d\n", s.NumberSpins)
	fmt.Fprintf(w, "samples:      %d\n", s.Size)
	fmt.Fprintf(w, "total count:  %d\n", s.TotalCount)
	fmt.Fprintf(w, "mean value:   %.6g\n", s.MeanValue)
	fmt.Fprintf(w, "chunks:       %d\n", len(s.Chunks))
	for i, c := range s.Chunks {
		fmt.Fprintf(w, "  [%d] %-40s %8d samples (cumulative %d)\n", i, c.Path, c.Samples, s.CumulativeSizes[i])
	}
}
