// Package report renders the four-section plain-text report (C5's
// reporting half): input echo, cache calculated values, virtual-memory
// results, and cache results.
//
// Grounded on the teacher's internal/diagnostics/builder.go fluent
// accumulate-then-render idiom and internal/cli/common.go's column-padded
// fmt.Printf report texture, upgraded to text/tabwriter — the stdlib
// successor to the same hand-padded-columns technique, not a new
// paradigm.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/memsim-project/memsim/internal/cache"
	"github.com/memsim-project/memsim/internal/frame"
)

// PTEBytes is the assumed per-entry page table footprint used for the
// waste computation (E4.1): frame number, tick, and flag/permission bytes,
// matching the original C source's struct PTE layout.
const PTEBytes = 18

// Input echoes the validated configuration.
type Input struct {
	CacheKiB         int
	BlockBytes       int
	AssociativityArg int // as given on the CLI; -1 preserved for display
	PolicyArg        string
	PolicyFallback   string // non-empty if lr/lf/mr was mapped to rr
	PhysicalMiB      int
	ReservePercent   int
	TimeSlice        int
	TraceFiles       []string
	HostMemoryNote   string // optional advisory from internal/config's x/sys check
}

// ProcessUsage is one stream's page-table usage/waste figures.
type ProcessUsage struct {
	PID            uint32
	PagesMapped    uint64
	Faults         uint64
	TableEntries   uint64
	TouchedEntries uint64
}

// UsagePercent is the fraction of the page table ever populated.
func (p ProcessUsage) UsagePercent() float64 {
	if p.TableEntries == 0 {
		return 0
	}
	return 100 * float64(p.TouchedEntries) / float64(p.TableEntries)
}

// WasteBytes is the page-table capacity that was allocated but never used.
func (p ProcessUsage) WasteBytes() uint64 {
	return (p.TableEntries - p.TouchedEntries) * PTEBytes
}

// StreamSummary is the supplemental per-stream breakdown from E4.4.
type StreamSummary struct {
	PID          uint32
	Instructions uint64
	Faults       uint64
}

// Builder accumulates everything needed to render the report.
type Builder struct {
	Input             Input
	Cache             *cache.Cache
	Pool              *frame.Pool
	Processes         []ProcessUsage
	Streams           []StreamSummary
	TotalCycles       uint64
	TotalInstructions uint64
}

// CPI is total_cycles / total_instructions, per §6.
func (b *Builder) CPI() float64 {
	if b.TotalInstructions == 0 {
		return 0
	}
	return float64(b.TotalCycles) / float64(b.TotalInstructions)
}

// Render writes the four-section report to w.
func (b *Builder) Render(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	b.renderInputEcho(tw)
	fmt.Fprintln(tw)
	b.renderCacheCalculated(tw)
	fmt.Fprintln(tw)
	b.renderVMResults(tw)
	fmt.Fprintln(tw)
	b.renderCacheResults(tw)

	if len(b.Streams) > 1 {
		fmt.Fprintln(tw)
		b.renderStreamBreakdown(tw)
	}

	tw.Flush()
}

func (b *Builder) renderInputEcho(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "=== Input ===")
	fmt.Fprintf(tw, "cache size (-s)\t%d KiB\n", b.Input.CacheKiB)
	fmt.Fprintf(tw, "block size (-b)\t%d bytes\n", b.Input.BlockBytes)
	fmt.Fprintf(tw, "associativity (-a)\t%d\n", b.Input.AssociativityArg)

	policyLine := b.Input.PolicyArg
	if b.Input.PolicyFallback != "" {
		policyLine = fmt.Sprintf("%s (mapped to rr)", b.Input.PolicyFallback)
	}
	fmt.Fprintf(tw, "replacement policy (-r)\t%s\n", policyLine)

	fmt.Fprintf(tw, "physical memory (-p)\t%d MiB\n", b.Input.PhysicalMiB)
	fmt.Fprintf(tw, "system reserved (-u)\t%d%%\n", b.Input.ReservePercent)
	fmt.Fprintf(tw, "time slice (-n)\t%d\n", b.Input.TimeSlice)
	for _, f := range b.Input.TraceFiles {
		fmt.Fprintf(tw, "trace file (-f)\t%s\n", f)
	}
	if b.Input.HostMemoryNote != "" {
		fmt.Fprintf(tw, "host memory note\t%s\n", b.Input.HostMemoryNote)
	}
}

func (b *Builder) renderCacheCalculated(tw *tabwriter.Writer) {
	c := b.Cache
	fmt.Fprintln(tw, "=== Cache Calculated Values ===")
	fmt.Fprintf(tw, "total blocks\t%d\n", c.TotalBlocks())
	fmt.Fprintf(tw, "tag bits\t%d\n", c.TagBits())
	fmt.Fprintf(tw, "index bits\t%d\n", c.IndexBits())
	fmt.Fprintf(tw, "offset bits\t%d\n", c.OffsetBits())
	fmt.Fprintf(tw, "overhead bytes\t%d\n", c.OverheadBytes())
	fmt.Fprintf(tw, "implementation size\t%d bytes\n", c.ImplementationBytes())
	fmt.Fprintf(tw, "chip cost ($0.07/KiB)\t$%.2f\n", c.ChipCostDollars())
}

func (b *Builder) renderVMResults(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "=== Virtual Memory Results ===")
	fmt.Fprintf(tw, "pages mapped\t%d\n", b.totalPagesMapped())
	fmt.Fprintf(tw, "page-table hits\t%d\n", b.pageTableHits())
	fmt.Fprintf(tw, "pages-from-free\t%d\n", b.Pool.Stats.PagesFromFree)
	fmt.Fprintf(tw, "page faults\t%d\n", b.Pool.Stats.PageFaults)

	for _, p := range b.Processes {
		fmt.Fprintf(tw, "  process %d table usage\t%.1f%% (%d/%d entries)\n",
			p.PID, p.UsagePercent(), p.TouchedEntries, p.TableEntries)
		fmt.Fprintf(tw, "  process %d table waste\t%d bytes\n", p.PID, p.WasteBytes())
	}
}

func (b *Builder) totalPagesMapped() uint64 {
	var n uint64
	for _, p := range b.Processes {
		n += p.TouchedEntries
	}
	return n
}

func (b *Builder) pageTableHits() uint64 {
	accesses := b.Pool.Stats.Accesses
	faults := b.Pool.Stats.PageFaults
	fromFree := b.Pool.Stats.PagesFromFree
	if accesses < faults+fromFree {
		return 0
	}
	return accesses - faults - fromFree
}

func (b *Builder) renderCacheResults(tw *tabwriter.Writer) {
	c := b.Cache
	fmt.Fprintln(tw, "=== Cache Results ===")
	fmt.Fprintf(tw, "accesses\t%d\n", c.Stats.Addresses)
	fmt.Fprintf(tw, "instruction bytes\t%d\n", c.Stats.InstructionBytes)
	fmt.Fprintf(tw, "src/dst bytes\t%d\n", c.Stats.SrcDstBytes)
	fmt.Fprintf(tw, "hits\t%d\n", c.Stats.Hits)
	fmt.Fprintf(tw, "misses\t%d\n", c.Stats.Misses)
	fmt.Fprintf(tw, "  compulsory\t%d\n", c.Stats.CompulsoryMisses)
	fmt.Fprintf(tw, "  conflict\t%d\n", c.Stats.ConflictMisses)
	fmt.Fprintf(tw, "hit rate\t%.2f%%\n", c.HitRatePercent())
	fmt.Fprintf(tw, "miss rate\t%.2f%%\n", 100-c.HitRatePercent())
	fmt.Fprintf(tw, "CPI\t%.4f\n", b.CPI())
	fmt.Fprintf(tw, "unused blocks\t%d\n", c.UnusedBlocks())
	fmt.Fprintf(tw, "waste\t$%.2f\n", c.WasteDollars())
}

func (b *Builder) renderStreamBreakdown(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "=== Per-Stream Breakdown ===")
	fmt.Fprintln(tw, "stream\tinstructions\tfaults")
	for _, s := range b.Streams {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", s.PID, s.Instructions, s.Faults)
	}
}
