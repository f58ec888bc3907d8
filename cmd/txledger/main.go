package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/txledger/internal/adapter/csvio"
	redisRepo "github.com/iho/txledger/internal/adapter/repository/redis"
	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/config"
	"github.com/iho/txledger/internal/infrastructure/idgen"
	"github.com/iho/txledger/internal/infrastructure/logger"
	"github.com/iho/txledger/internal/infrastructure/metrics"
	"github.com/iho/txledger/internal/infrastructure/redis"
	"github.com/iho/txledger/internal/usecase"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitCorrupted = 2
)

type options struct {
	verbose bool
	output  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	// A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "txledger: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case domain.IsFatal(err):
		return exitCorrupted
	default:
		return exitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "txledger <transactions.csv>",
		Short: "Replay a transaction CSV into client account balances",
		Long: `Reads deposits, withdrawals, disputes, resolves and chargebacks from a CSV file
in order, and writes the final state of every client account as CSV.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), args[0], opts, stdout, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every record at debug level")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Write the snapshot to a file instead of stdout")

	rootCmd.AddCommand(newSnapshotCmd(opts, stdout, stderr))

	return rootCmd
}

func newSnapshotCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [run-id]",
		Short: "Print a snapshot previously exported to Redis",
		Long:  `Prints the snapshot of the given run, or of the latest run when no id is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, log, err := setup(opts, stderr)
			if err != nil {
				return err
			}
			if !cfg.RedisEnabled() {
				return errors.New("REDIS_URL is not set")
			}

			client, err := redis.NewClient(ctx, cfg.RedisURL, cfg.SnapshotTimeout)
			if err != nil {
				return err
			}
			defer client.Close()

			store := redisRepo.NewSnapshotStore(client, cfg.SnapshotKeyPrefix, cfg.SnapshotTTL, log)

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			} else if runID, err = store.Latest(ctx); err != nil {
				return err
			}

			accounts, err := store.Load(ctx, runID)
			if err != nil {
				return fmt.Errorf("load snapshot %s: %w", runID, err)
			}

			out, finishOut, err := openOutput(opts.output, stdout)
			if err != nil {
				return err
			}

			writeErr := csvio.NewWriter(out, cfg.OutputPrecision).WriteSnapshot(ctx, runID, accounts)
			if err := finishOut(writeErr == nil); err != nil && writeErr == nil {
				return err
			}
			return writeErr
		},
	}
}

func setup(opts *options, stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}

	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}

	log := logger.New(logger.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: stderr,
	})

	return cfg, log, nil
}

func runBatch(ctx context.Context, path string, opts *options, stdout, stderr io.Writer) error {
	cfg, log, err := setup(opts, stderr)
	if err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var sinks []usecase.SnapshotSink

	// Redis goes first so stdout only carries a snapshot once every sink succeeded.
	if cfg.RedisEnabled() {
		client, err := redis.NewClient(ctx, cfg.RedisURL, cfg.SnapshotTimeout)
		if err != nil {
			return err
		}
		defer client.Close()
		log.Debug().Str("prefix", cfg.SnapshotKeyPrefix).Msg("connected to redis")

		sinks = append(sinks, redisRepo.NewSnapshotStore(client, cfg.SnapshotKeyPrefix, cfg.SnapshotTTL, log))
	}

	out, finishOut, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}
	sinks = append(sinks, csvio.NewWriter(out, cfg.OutputPrecision))

	uc := usecase.NewBatchUseCase(idgen.NewRunIDGenerator(), log, m, usecase.BatchConfig{
		SkipMalformedRows: cfg.SkipMalformedRows,
	})

	_, runErr := uc.Run(ctx, csvio.NewReader(in), sinks...)
	if err := finishOut(runErr == nil); err != nil && runErr == nil {
		runErr = err
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, reg); err != nil {
			log.Error().Err(err).Str("path", cfg.MetricsTextfile).Msg("failed to write metrics")
			if runErr == nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
	}

	return runErr
}

// openOutput returns the writer the CSV snapshot goes to. A file target is written
// to a temporary file in the same directory and only replaces path when finish is
// called with ok set, so a failed run leaves an existing file untouched.
func openOutput(path string, stdout io.Writer) (io.Writer, func(ok bool) error, error) {
	if path == "" || path == "-" {
		return stdout, func(bool) error { return nil }, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}

	finish := func(ok bool) error {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return nil
		}
		if err := tmp.Chmod(0o644); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("chmod output: %w", err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("close output: %w", err)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("replace output: %w", err)
		}
		return nil
	}

	return tmp, finish, nil
}
