package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/recording"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

type options struct {
	setBits     int
	lines       int
	blockBits   int
	tracePath   string
	verbose     bool
	configPath  string
	recordPath  string
	resultsPath string
	cpuProfile  string
	memProfile  string
}

var errMissingGeometry = errors.New(
	"-s, -E, and -b are required unless --config is given")

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "csim -s <num> -E <num> -b <num> -t <file>",
		Short: "Simulate a set-associative LRU cache on a memory trace.",
		Long: `csim replays a valgrind lackey memory trace against a cache ` +
			`with 2^s sets of E lines and 2^b byte blocks, and reports ` +
			`the number of hits, misses, and evictions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := resolveConfig(cmd, opts)
			if err != nil {
				if errors.Is(err, errMissingGeometry) {
					_ = cmd.Usage()
				}
				return err
			}

			return profile(opts, func() error {
				return run(cmd, opts, config)
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.setBits, "set-bits", "s", 0,
		"Number of set index bits.")
	flags.IntVarP(&opts.lines, "lines", "E", 0, "Number of lines per set.")
	flags.IntVarP(&opts.blockBits, "block-bits", "b", 0,
		"Number of block offset bits.")
	flags.StringVarP(&opts.tracePath, "trace", "t", "", "Trace file.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Print the outcome of every trace record.")
	flags.StringVar(&opts.configPath, "config", "",
		"Path to a JSON cache config; -s, -E, and -b override its fields.")
	flags.StringVar(&opts.recordPath, "record", "",
		"Record every access into <path>.sqlite3.")
	flags.StringVar(&opts.resultsPath, "results", ".csim_results",
		"File that receives \"hits misses evictions\"; empty to skip.")

	flags.StringVar(&opts.cpuProfile, "cpuprofile", "",
		"Write a CPU profile of the run to this file.")
	flags.StringVar(&opts.memProfile, "memprofile", "",
		"Write a heap profile taken after the run to this file.")

	_ = cmd.MarkFlagRequired("trace")

	return cmd
}

// resolveConfig merges the config file, if any, with the geometry flags.
func resolveConfig(cmd *cobra.Command, opts *options) (cache.Config, error) {
	flags := cmd.Flags()
	config := cache.DefaultConfig()

	if opts.configPath != "" {
		loaded, err := cache.LoadConfig(opts.configPath)
		if err != nil {
			return cache.Config{}, err
		}
		config = loaded
	} else if !flags.Changed("set-bits") || !flags.Changed("lines") ||
		!flags.Changed("block-bits") {
		return cache.Config{}, errMissingGeometry
	}

	if flags.Changed("set-bits") {
		config.SetBits = opts.setBits
	}
	if flags.Changed("lines") {
		config.LinesPerSet = opts.lines
	}
	if flags.Changed("block-bits") {
		config.BlockBits = opts.blockBits
	}

	return *config, nil
}

// profile runs f under the CPU and heap profilers requested in opts.
func profile(opts *options, f func() error) error {
	if opts.cpuProfile != "" {
		file, err := os.Create(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer func() { _ = file.Close() }()

		if err := pprof.StartCPUProfile(file); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if err := f(); err != nil {
		return err
	}

	if opts.memProfile != "" {
		file, err := os.Create(opts.memProfile)
		if err != nil {
			return fmt.Errorf("failed to create memory profile: %w", err)
		}
		defer func() { _ = file.Close() }()

		if err := pprof.WriteHeapProfile(file); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	return nil
}

type flushCloser interface {
	Flush()
	Close() error
	FileName() string
}

// closeRecorder flushes the buffered rows and closes the database. SQLite
// reports some write failures only at close, so they are logged here.
func closeRecorder(r flushCloser) {
	r.Flush()

	if err := r.Close(); err != nil {
		logger.Printf("failed to close %s: %v", r.FileName(), err)
	}
}

func run(cmd *cobra.Command, opts *options, config cache.Config) error {
	c, err := cache.New(config)
	if err != nil {
		return err
	}

	var simOpts []sim.SimulatorOption
	if opts.verbose {
		simOpts = append(simOpts,
			sim.WithTracer(sim.NewVerboseTracer(cmd.OutOrStdout())))
	}

	if opts.recordPath != "" {
		recorder, err := recording.NewSQLiteRecorder(opts.recordPath, config)
		if err != nil {
			return err
		}
		defer closeRecorder(recorder)

		logger.Printf("recording run %s to %s",
			recorder.RunID(), recorder.FileName())
		simOpts = append(simOpts, sim.WithTracer(recorder))
	}

	reader, closer, err := trace.Open(opts.tracePath)
	if err != nil {
		return err
	}
	defer closer.Close()

	simulator := sim.NewSimulator(c, simOpts...)
	summary, err := simulator.Run(reader)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.tracePath, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary)

	if opts.resultsPath != "" {
		return summary.WriteResults(opts.resultsPath)
	}

	return nil
}
