package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/spinload/internal/chunkio"
	"github.com/born-ml/spinload/internal/config"
	"github.com/born-ml/spinload/internal/loader"
	"github.com/born-ml/spinload/internal/logging"
	"github.com/born-ml/spinload/internal/metrics"
	"github.com/born-ml/spinload/internal/sampler"
	"github.com/born-ml/spinload/internal/unpack"
)

func iterateCmd() *cli.Command {
	return &cli.Command{
		Name:      "iterate",
		Usage:     "Run the data loader over chunk files and report throughput",
		ArgsUsage: "FILES...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "env-file", Usage: ".env file with SPINLOAD_* variables", Value: ".env"},
			&cli.Int64Flag{Name: "batch-size", Aliases: []string{"b"}, Usage: "samples per batch"},
			&cli.BoolFlag{Name: "shuffle", Usage: "shuffle every epoch"},
			&cli.BoolFlag{Name: "ignore-last", Usage: "drop the final short batch"},
			&cli.StringFlag{Name: "transform", Aliases: []string{"t"}, Usage: "identity, amplitude or sign"},
			&cli.Int64Flag{Name: "epochs", Aliases: []string{"e"}, Usage: "number of epochs"},
			&cli.Int64Flag{Name: "seed", Usage: "shuffle seed (negative for random)"},
			&cli.Int64Flag{Name: "workers", Aliases: []string{"w"}, Usage: "decode goroutines (0 for one per core)"},
			&cli.BoolFlag{Name: "wide", Usage: "files hold 512-bit containers"},
			&cli.StringFlag{Name: "arrow", Usage: "write the first epoch's batches to this Arrow IPC stream file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return errors.New("iterate: at least one chunk file is required")
			}

			cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging())
			if err != nil {
				return err
			}
			runID := uuid.NewString()
			logger = logger.With().Str("run_id", runID).Logger()

			reg := prometheus.NewRegistry()
			m := metrics.NewLoader(reg)
			if cfg.MetricsAddr != "" {
				srv := serveMetrics(cfg.MetricsAddr, reg, logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			run := runner{
				cfg:       cfg,
				logger:    logger,
				metrics:   m,
				name:      runID,
				arrowPath: cmd.String("arrow"),
			}
			if cmd.Bool("wide") {
				return iterate[unpack.Bits512](ctx, run, paths)
			}
			return iterate[uint64](ctx, run, paths)
		},
	}
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("batch-size") {
		cfg.BatchSize = int(cmd.Int64("batch-size"))
	}
	if cmd.IsSet("shuffle") {
		cfg.Shuffle = cmd.Bool("shuffle")
	}
	if cmd.IsSet("ignore-last") {
		cfg.IgnoreLast = cmd.Bool("ignore-last")
	}
	if cmd.IsSet("transform") {
		cfg.Transform = cmd.String("transform")
	}
	if cmd.IsSet("epochs") {
		cfg.Epochs = int(cmd.Int64("epochs"))
	}
	if cmd.IsSet("seed") {
		cfg.Seed = cmd.Int64("seed")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int64("workers"))
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

type runner struct {
	cfg       config.Config
	logger    zerolog.Logger
	metrics   *metrics.Loader
	name      string
	arrowPath string
}

func iterate[S unpack.Container](ctx context.Context, run runner, paths []string) error {
	cfg := run.cfg
	loadStart := time.Now()
	ds, err := chunkio.LoadDataset[S](ctx, paths)
	if err != nil {
		return err
	}
	run.logger.Info().
		Int("files", len(paths)).
		Int("samples", ds.Size()).
		Int("number_spins", ds.NumberSpins()).
		Dur("elapsed", time.Since(loadStart)).
		Msg("dataset loaded")

	s, err := sampler.New(ds.Size(), cfg.BatchSize,
		sampler.WithShuffle(cfg.Shuffle),
		sampler.WithIgnoreLast(cfg.IgnoreLast),
		sampler.WithSeed(cfg.Seed),
	)
	if err != nil {
		return err
	}
	l, err := loader.New(ds, s, cfg.TransformValue(),
		loader.WithParallel(cfg.Parallel()),
		loader.WithLogger(run.logger),
		loader.WithMetrics(run.metrics),
		loader.WithName(run.name),
	)
	if err != nil {
		return err
	}

	var export *chunkio.StreamWriter
	if run.arrowPath != "" {
		f, err := os.Create(run.arrowPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", run.arrowPath, err)
		}
		defer f.Close()
		export = chunkio.NewStreamWriter(f, ds.NumberSpins(), l.Transform())
	}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		start := time.Now()
		var batches, rows int
		for b := range l.All() {
			if err := ctx.Err(); err != nil {
				return err
			}
			batches++
			rows += b.Len()
			if export != nil {
				if err := export.Write(b); err != nil {
					return err
				}
			}
		}
		if export != nil {
			if err := export.Close(); err != nil {
				return fmt.Errorf("failed to finish %s: %w", run.arrowPath, err)
			}
			export = nil
		}

		elapsed := time.Since(start)
		rate := 0.0
		if elapsed > 0 {
			rate = float64(rows) / elapsed.Seconds()
		}
		run.logger.Info().
			Int("epoch", epoch).
			Int("batches", batches).
			Int("samples", rows).
			Dur("elapsed", elapsed).
			Float64("samples_per_sec", rate).
			Msg("epoch complete")
	}
	return nil
}
