// Package main provides the spinload CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

const version = "v0.1.0-dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "spinload",
		Usage: "Build and iterate training batches from packed spin configurations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			generateCmd(),
			inspectCmd(),
			iterateCmd(),
			versionCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
