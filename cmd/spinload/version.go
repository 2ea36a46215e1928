package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version and CPU information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			fmt.Fprintf(w, "version:    %s\n", version)
			fmt.Fprintf(w, "go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "cpu:        %s\n", cpuid.CPU.BrandName)
			fmt.Fprintf(w, "cores:      %d physical, %d logical\n", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)

			var features []string
			for _, f := range []struct {
				name string
				id   cpuid.FeatureID
			}{
				{"sse4.2", cpuid.SSE42},
				{"avx2", cpuid.AVX2},
				{"avx512f", cpuid.AVX512F},
				{"bmi2", cpuid.BMI2},
				{"asimd", cpuid.ASIMD},
			} {
				if cpuid.CPU.Supports(f.id) {
					features = append(features, f.name)
				}
			}
			if len(features) == 0 {
				features = append(features, "none detected")
			}
			fmt.Fprintf(w, "features:   %s\n", strings.Join(features, " "))
			return nil
		},
	}
}
