// Command memsim is the trace-driven two-level memory hierarchy simulator:
// a per-process virtual-memory translator over a shared physical frame
// pool, feeding a set-associative cache, reporting hit/miss behavior,
// miss classification, cycle cost, page-fault statistics, and space/cost
// waste.
package main

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/memsim-project/memsim/internal/cache"
	"github.com/memsim-project/memsim/internal/cliutil"
	"github.com/memsim-project/memsim/internal/config"
	"github.com/memsim-project/memsim/internal/frame"
	"github.com/memsim-project/memsim/internal/report"
	"github.com/memsim-project/memsim/internal/sched"
	"github.com/memsim-project/memsim/internal/trace"
	"github.com/memsim-project/memsim/internal/watch"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		cliutil.ExitWithError(config.Usage(), "%v", err)
	}

	logger := cliutil.NewLogger(true, false)

	if err := runOnce(cfg, logger); err != nil {
		cliutil.ExitWithError("", "%v", err)
	}

	if !cfg.Watch {
		return
	}

	watcher, err := watch.New(cfg.TraceFiles)
	if err != nil {
		logger.Error("watch mode unavailable: %v", err)
		return
	}
	defer watcher.Close()

	logger.Info("watching %d trace file(s) for changes", len(cfg.TraceFiles))
	for ev := range watcher.Events() {
		logger.Info("%s changed, re-running", ev.Path)
		if err := runOnce(cfg, logger); err != nil {
			logger.Error("re-run failed: %v", err)
		}
	}
}

// openTrace opens path and builds a trace.Reader over it, consuming any
// optional format-version header first. IOError and version-mismatch
// failures are reported and the file is skipped, per §7's tolerant policy
// for file-level errors — only configuration errors abort the whole run.
func openTrace(path string, logger *cliutil.Logger) (*trace.Reader, *os.File, bool) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("skipping %s: %v", path, err)
		return nil, nil, false
	}

	br := bufio.NewReader(f)

	header, err := trace.SplitHeader(br)
	if err != nil {
		logger.Error("skipping %s: %v", path, err)
		f.Close()
		return nil, nil, false
	}
	if err := config.CheckTraceFormatVersion(header); err != nil {
		logger.Error("skipping %s: %v", path, err)
		f.Close()
		return nil, nil, false
	}

	return trace.NewReader(br), f, true
}

// runOnce builds a fresh pool, cache, and set of streams from cfg, runs
// the scheduler to completion, and prints the report.
func runOnce(cfg *config.Config, logger *cliutil.Logger) error {
	if cfg.PolicyFallback != "" {
		logger.Warn("-r %s has no dedicated model; falling back to round-robin", cfg.PolicyFallback)
	}

	pool, err := frame.New(cfg.PhysicalBytes, cfg.PageBytes, cfg.SystemReserveFraction)
	if err != nil {
		return err
	}

	c, err := cache.New(cfg.CacheBytes, cfg.BlockBytes, cfg.Associativity, cfg.Policy, cfg.PhysicalAddressWidth)
	if err != nil {
		return err
	}

	var streams []*sched.Stream
	var files []*os.File

	for i, path := range cfg.TraceFiles {
		reader, f, ok := openTrace(path, logger)
		if !ok {
			continue
		}

		files = append(files, f)

		pid := uint32(i + 1)
		st, err := sched.NewStream(pid, cfg.VirtualAddressBits, cfg.PageBytes, pool, reader)
		if err != nil {
			return err
		}

		streams = append(streams, st)
	}

	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	if len(streams) == 0 {
		return fmt.Errorf("no trace file could be opened")
	}

	coordinator := sched.NewCoordinator(pool, c, streams)
	coordinator.Run(cfg.TimeSlice)

	builder := buildReport(cfg, pool, c, streams, coordinator)
	builder.Render(os.Stdout)

	return nil
}

func buildReport(cfg *config.Config, pool *frame.Pool, c *cache.Cache, streams []*sched.Stream, coordinator *sched.Scheduler) *report.Builder {
	b := &report.Builder{
		Input: report.Input{
			CacheKiB:         int(cfg.CacheBytes / 1024),
			BlockBytes:       int(cfg.BlockBytes),
			AssociativityArg: cfg.AssociativityArg,
			PolicyArg:        cfg.PolicyArg,
			PolicyFallback:   cfg.PolicyFallback,
			PhysicalMiB:      int(cfg.PhysicalBytes / (1024 * 1024)),
			ReservePercent:   int(math.Round(cfg.SystemReserveFraction * 100)),
			TimeSlice:        cfg.TimeSlice,
			TraceFiles:       cfg.TraceFiles,
			HostMemoryNote:   config.HostMemoryNote(cfg.PhysicalBytes),
		},
		Cache:             c,
		Pool:              pool,
		TotalCycles:       coordinator.TotalCycles,
		TotalInstructions: coordinator.TotalInstructions,
	}

	for _, st := range streams {
		b.Processes = append(b.Processes, report.ProcessUsage{
			PID:            st.PID,
			Faults:         st.VM.Faults(),
			TableEntries:   st.VM.TableEntries(),
			TouchedEntries: st.VM.TouchedEntries(),
		})
		b.Streams = append(b.Streams, report.StreamSummary{
			PID:          st.PID,
			Instructions: st.Instructions,
			Faults:       st.VM.Faults(),
		})
	}

	return b
}
