// Package config parses and validates memsim's CLI surface into the
// derived geometry the simulation core needs, and holds the small
// forward-compatibility and host-memory checks layered on top of it.
//
// Grounded on the teacher's internal/cli plain flag.FlagSet usage (no
// cobra/pflag anywhere in the pack) and its ExitWithError-on-invalid-config
// posture.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/memsim-project/memsim/internal/cache"
	"github.com/memsim-project/memsim/internal/simerrors"
)

// Fixed parameters not exposed on the CLI surface (§6 names none): the
// trace format models x86-style 32-bit effective addresses over 4KiB pages.
const (
	DefaultPageBytes            = 4096
	DefaultVirtualAddressBits   = 32
	DefaultPhysicalAddressWidth = 32
)

// SupportedTraceFormatConstraint is the semver range of trace-format
// header versions this build understands (E3's forward-compatibility
// guard).
const SupportedTraceFormatConstraint = "^1.0"

// Config is the fully validated, derived configuration for one run.
type Config struct {
	CacheBytes       uint64
	BlockBytes       uint64
	Associativity    uint64 // resolved: -1 becomes total-blocks (one set)
	AssociativityArg int    // as given on the CLI, -1 preserved, for display
	Policy           cache.Policy
	PolicyArg        string // as given on the CLI ("rr", "ra", or a mapped name)
	PolicyFallback   string // non-empty if -r named lr/lf/mr, mapped to rr

	PhysicalBytes         uint64
	SystemReserveFraction float64

	TimeSlice int // -1 means run each stream to EOF

	TraceFiles []string
	Watch      bool

	PageBytes            uint64
	VirtualAddressBits   uint
	PhysicalAddressWidth uint
}

type stringSliceFlag struct{ values *[]string }

func (f stringSliceFlag) String() string {
	if f.values == nil {
		return ""
	}
	return strings.Join(*f.values, ",")
}

func (f stringSliceFlag) Set(value string) error {
	*f.values = append(*f.values, value)
	return nil
}

// Parse parses args (excluding the program name) into a Config, validating
// every CLI-surface constraint from §6. Returns InvalidConfig on the first
// violation.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("memsim", flag.ContinueOnError)

	cacheKiB := fs.Int("s", 0, "cache size in KiB (8-8192)")
	blockBytes := fs.Int("b", 0, "block size in bytes (8-64, power of two)")
	assoc := fs.Int("a", 0, "associativity (1,2,4,8,16, or -1 for fully associative)")
	policy := fs.String("r", "", "replacement policy (lr,lf,rr,ra,mr)")
	physMiB := fs.Int("p", 0, "physical memory in MiB (128-4096)")
	reservePct := fs.Int("u", -1, "system-reserved percent (0-100)")
	timeSlice := fs.Int("n", 0, "instructions per time slice, or -1 to run to EOF")
	watch := fs.Bool("watch", false, "re-run on trace file change")

	var traceFiles []string
	fs.Var(stringSliceFlag{&traceFiles}, "f", "trace file path (repeatable, up to 3)")

	if err := fs.Parse(args); err != nil {
		return nil, simerrors.InvalidConfigf("%v", err)
	}

	cfg := &Config{
		PageBytes:            DefaultPageBytes,
		VirtualAddressBits:   DefaultVirtualAddressBits,
		PhysicalAddressWidth: DefaultPhysicalAddressWidth,
		Watch:                *watch,
	}

	if err := cfg.setCache(*cacheKiB, *blockBytes, *assoc, *policy); err != nil {
		return nil, err
	}
	if err := cfg.setPhysical(*physMiB, *reservePct); err != nil {
		return nil, err
	}
	if err := cfg.setTimeSlice(*timeSlice); err != nil {
		return nil, err
	}
	if err := cfg.setTraceFiles(traceFiles); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) setCache(cacheKiB, blockBytes, assoc int, policy string) error {
	if cacheKiB < 8 || cacheKiB > 8192 {
		return simerrors.InvalidConfigf("-s %d out of range [8,8192] KiB", cacheKiB)
	}
	if blockBytes < 8 || blockBytes > 64 || blockBytes&(blockBytes-1) != 0 {
		return simerrors.InvalidConfigf("-b %d out of range or not a power of two [8,64]", blockBytes)
	}

	switch assoc {
	case 1, 2, 4, 8, 16, -1:
	default:
		return simerrors.InvalidConfigf("-a %d not one of 1,2,4,8,16,-1", assoc)
	}

	c.CacheBytes = uint64(cacheKiB) * 1024
	c.BlockBytes = uint64(blockBytes)
	c.AssociativityArg = assoc

	if assoc == -1 {
		c.Associativity = c.CacheBytes / c.BlockBytes // fully associative: one set
	} else {
		c.Associativity = uint64(assoc)
	}

	c.PolicyArg = policy
	switch policy {
	case "rr":
		c.Policy = cache.PolicyRR
	case "ra":
		c.Policy = cache.PolicyRandom
	case "lr", "lf", "mr":
		c.Policy = cache.PolicyRR
		c.PolicyFallback = policy
	default:
		return simerrors.InvalidConfigf("-r %q not one of lr,lf,rr,ra,mr", policy)
	}

	return nil
}

func (c *Config) setPhysical(physMiB, reservePct int) error {
	if physMiB < 128 || physMiB > 4096 {
		return simerrors.InvalidConfigf("-p %d out of range [128,4096] MiB", physMiB)
	}
	if reservePct < 0 || reservePct > 100 {
		return simerrors.InvalidConfigf("-u %d out of range [0,100] percent", reservePct)
	}

	c.PhysicalBytes = uint64(physMiB) * 1024 * 1024
	c.SystemReserveFraction = float64(reservePct) / 100.0

	return nil
}

func (c *Config) setTimeSlice(timeSlice int) error {
	if timeSlice != -1 && timeSlice <= 0 {
		return simerrors.InvalidConfigf("-n %d must be positive or -1", timeSlice)
	}
	c.TimeSlice = timeSlice
	return nil
}

func (c *Config) setTraceFiles(files []string) error {
	if len(files) == 0 {
		return simerrors.InvalidConfigf("at least one -f trace file is required")
	}
	if len(files) > 3 {
		return simerrors.InvalidConfigf("-f given %d times, maximum is 3", len(files))
	}

	c.TraceFiles = files

	return nil
}

// CheckTraceFormatVersion validates an optional trace-format header
// (";; memsim-trace-format: <version>", see trace.SplitHeader) against the
// constraint this build supports. An empty header means "assume
// compatible" — spec-conformant traces never carry one.
func CheckTraceFormatVersion(header string) error {
	if header == "" {
		return nil
	}

	v, err := semver.NewVersion(strings.TrimSpace(header))
	if err != nil {
		return simerrors.InvalidConfigf("unparsable trace-format version %q: %v", header, err)
	}

	constraint, err := semver.NewConstraint(SupportedTraceFormatConstraint)
	if err != nil {
		// Constraint is a package constant; a parse failure here is a
		// programming error, not a user input error.
		panic(fmt.Sprintf("invalid built-in trace-format constraint: %v", err))
	}

	if !constraint.Check(v) {
		return simerrors.InvalidConfigf("trace-format version %s does not satisfy %s", v, SupportedTraceFormatConstraint)
	}

	return nil
}

// Usage returns the usage string printed on configuration failure.
func Usage() string {
	return "usage: memsim -s <KiB> -b <bytes> -a <1|2|4|8|16|-1> -r <lr|lf|rr|ra|mr> " +
		"-p <MiB> -u <0-100> -n <count|-1> -f <trace-file> [-f <trace-file>]... [-watch]"
}

