// Command vecstress runs a randomized workload against vector.Array, checks
// every step against a reference slice and reports allocator statistics.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/c2h5oh/datasize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/pavanmanishd/vector"
)

type options struct {
	configFile  string
	ops         int
	seed        int64
	maxLen      int
	logLevel    string
	memoryLimit string
}

func main() {
	var opts options

	app := kingpin.New("vecstress", "Randomized workload checker for vector.Array.")
	app.HelpFlag.Short('h')
	app.Flag("config.file", "YAML file with allocator settings.").StringVar(&opts.configFile)
	app.Flag("ops", "Number of operations to run.").Default("100000").IntVar(&opts.ops)
	app.Flag("seed", "Random seed. 0 uses the current time.").Default("0").Int64Var(&opts.seed)
	app.Flag("max-len", "Length above which the workload starts shrinking the array.").Default("512").IntVar(&opts.maxLen)
	app.Flag("log.level", "Only log messages with the given severity or above.").
		Default("info").EnumVar(&opts.logLevel, "debug", "info", "warn", "error")
	app.Flag("memory.limit", "Overrides memory_limit from the config file, e.g. 64KB.").StringVar(&opts.memoryLimit)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := newLogger(os.Stderr, opts.logLevel)
	if err := run(opts, logger, os.Stdout); err != nil {
		level.Error(logger).Log("msg", "workload failed", "err", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(opts options) (vector.Config, error) {
	cfg := vector.DefaultConfig()
	if opts.configFile != "" {
		var err error
		if cfg, err = vector.LoadConfig(opts.configFile); err != nil {
			return cfg, err
		}
	}
	if opts.memoryLimit != "" {
		var limit datasize.ByteSize
		if err := limit.UnmarshalText([]byte(opts.memoryLimit)); err != nil {
			return cfg, errors.Wrapf(err, "parse --memory.limit %q", opts.memoryLimit)
		}
		cfg.MemoryLimit = limit
	}
	return cfg, cfg.Validate()
}

func run(opts options, logger log.Logger, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	alloc, err := vector.NewAllocator(cfg, reg, logger)
	if err != nil {
		return errors.Wrap(err, "build allocator")
	}
	prev := vector.DefaultAllocator
	vector.DefaultAllocator = alloc
	defer func() { vector.DefaultAllocator = prev }()

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	level.Info(logger).Log("msg", "starting workload", "ops", opts.ops, "seed", seed,
		"memory_limit", cfg.MemoryLimit.HR(), "arena", cfg.Arena.Enabled)

	w := newWorkload(logger, seed, opts.maxLen)
	start := time.Now()
	runErr := w.run(opts.ops)
	elapsed := time.Since(start)
	w.close()
	if runErr != nil {
		return errors.Wrapf(runErr, "seed %d", seed)
	}
	level.Info(logger).Log("msg", "workload finished", "duration", elapsed)

	printStats(out, w.stats)
	if arena, ok := vector.ArenaOf(alloc); ok {
		m, _ := arena.Metrics()
		fmt.Fprintf(out, "arena: in_use=%s capacity=%s chunks=%d utilization=%.2f%%\n",
			datasize.ByteSize(m.SizeInUse).HR(), datasize.ByteSize(m.Capacity).HR(), m.NumChunks, m.Utilization*100)
	}
	if ia, ok := alloc.(*vector.InstrumentedAllocator); ok {
		s := ia.Stats()
		fmt.Fprintf(out, "allocator: allocations=%d frees=%d failures=%d in_use=%s\n",
			s.Allocations, s.Frees, s.Failures, datasize.ByteSize(s.InUse).HR())
		if s.InUse != 0 {
			return errors.Errorf("%d bytes still in use after release", s.InUse)
		}
	}
	if err := writeMetrics(out, reg); err != nil {
		return err
	}
	// Every array is released, so the arena can hand its chunks out again.
	if arena, ok := vector.ArenaOf(alloc); ok {
		arena.Reset()
		level.Debug(logger).Log("msg", "arena reset")
	}
	return nil
}

func printStats(out io.Writer, s workloadStats) {
	for k := opKind(0); k < numOps; k++ {
		fmt.Fprintf(out, "%-10s ops=%-8d failures=%d\n", k, s.Ops[k], s.Failures[k])
	}
	fmt.Fprintf(out, "max length=%d max capacity=%d\n", s.MaxLen, s.MaxCap)
}

func writeMetrics(out io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}
