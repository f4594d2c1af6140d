// Package cache implements the set-associative block cache (C3): bit-field
// address decoding, per-set round-robin or random replacement, multi-block
// span handling, and compulsory/conflict miss classification.
package cache

import (
	"math/bits"
	"math/rand"

	"github.com/memsim-project/memsim/internal/simerrors"
)

// Policy selects the per-set victim-selection strategy. Only RR and Random
// are modeled; the CLI surface's lr/lf/mr enum values are mapped onto RR by
// internal/config before reaching this package (§9 design notes).
type Policy int

const (
	PolicyRR Policy = iota
	PolicyRandom
)

// fixedSeed reproduces the same victim sequence across runs, per §9's
// reproducibility requirement for Random.
const fixedSeed = 1

// Line is one cache line: the required valid/tag pair plus fields reserved
// for policies this spec doesn't require (LRU tick, use count, dirty).
type Line struct {
	Valid bool
	Tag   uint64

	// Reserved, unused by RR/Random:
	LRUTick  uint64
	UseCount uint64
	Dirty    bool
}

// set is a group of associativity lines selected by the index field.
type set struct {
	lines    []Line
	rrCursor int
}

// Stats accumulates cache-wide counters for the reporter.
type Stats struct {
	Addresses        uint64 // logical accesses (one per access() call)
	BlockAccesses    uint64 // block-bases touched across all spans
	Hits             uint64
	Misses           uint64
	CompulsoryMisses uint64
	ConflictMisses   uint64
	InstructionBytes uint64
	SrcDstBytes      uint64
}

// Cache is the set-associative block cache.
type Cache struct {
	cacheBytes    uint64
	blockBytes    uint64
	associativity uint64
	numSets       uint64

	tagBits    uint
	indexBits  uint
	offsetBits uint

	policy Policy
	sets   []set
	rng    *rand.Rand

	Stats Stats
}

func isPowerOfTwo(v uint64) bool { return v > 0 && v&(v-1) == 0 }

// New builds a cache from its geometry. Fails with InvalidConfig if
// blockBytes isn't a power of two, if the derived set count isn't a power
// of two, or if cacheBytes doesn't divide evenly into
// blockBytes*associativity*numSets.
func New(cacheBytes, blockBytes, associativity uint64, policy Policy, physicalAddressWidth uint) (*Cache, error) {
	if !isPowerOfTwo(blockBytes) {
		return nil, simerrors.InvalidConfigf("block size %d is not a positive power of two", blockBytes)
	}
	if associativity == 0 || cacheBytes == 0 {
		return nil, simerrors.InvalidConfigf("cache size and associativity must be positive")
	}
	if cacheBytes%(blockBytes*associativity) != 0 {
		return nil, simerrors.InvalidConfigf("cache size %d does not divide evenly into block*associativity %d", cacheBytes, blockBytes*associativity)
	}

	numSets := cacheBytes / (blockBytes * associativity)
	if !isPowerOfTwo(numSets) {
		return nil, simerrors.InvalidConfigf("derived set count %d is not a power of two", numSets)
	}

	offsetBits := uint(bits.TrailingZeros64(blockBytes))
	indexBits := uint(bits.TrailingZeros64(numSets))
	tagBits := uint(physicalAddressWidth) - offsetBits - indexBits

	if int(tagBits) < 0 || offsetBits+indexBits > uint(physicalAddressWidth) {
		return nil, simerrors.InvalidConfigf("geometry does not fit in a %d-bit physical address", physicalAddressWidth)
	}

	sets := make([]set, numSets)
	for i := range sets {
		sets[i].lines = make([]Line, associativity)
	}

	return &Cache{
		cacheBytes:    cacheBytes,
		blockBytes:    blockBytes,
		associativity: associativity,
		numSets:       numSets,
		tagBits:       tagBits,
		indexBits:     indexBits,
		offsetBits:    offsetBits,
		policy:        policy,
		sets:          sets,
		rng:           rand.New(rand.NewSource(fixedSeed)),
	}, nil
}

// Geometry accessors, used by the reporter's "cache calculated values"
// section.
func (c *Cache) NumSets() uint64       { return c.numSets }
func (c *Cache) Associativity() uint64 { return c.associativity }
func (c *Cache) BlockBytes() uint64    { return c.blockBytes }
func (c *Cache) TagBits() uint         { return c.tagBits }
func (c *Cache) IndexBits() uint       { return c.indexBits }
func (c *Cache) OffsetBits() uint      { return c.offsetBits }
func (c *Cache) TotalBlocks() uint64   { return c.numSets * c.associativity }

// UnusedBlocks returns the number of lines not currently holding a valid
// entry (never filled, or invalidated since), used by the waste/cost
// reporting in E4.3.
func (c *Cache) UnusedBlocks() uint64 {
	var unused uint64
	for _, s := range c.sets {
		for _, l := range s.lines {
			if !l.Valid {
				unused++
			}
		}
	}
	return unused
}

// metaBitsPerLine is the per-line bookkeeping overhead: the tag field plus
// the valid and dirty bits (E4.2: dirty is carried in the hardware-size
// accounting even though no dirty-writeback cost is modeled).
func (c *Cache) metaBitsPerLine() uint64 {
	return uint64(c.tagBits) + 2
}

// MetaBytesPerBlock is the per-line overhead rounded up to bytes.
func (c *Cache) MetaBytesPerBlock() uint64 {
	return (c.metaBitsPerLine() + 7) / 8
}

// OverheadBytes is the total tag/valid/dirty storage across every line.
func (c *Cache) OverheadBytes() uint64 {
	return c.MetaBytesPerBlock() * c.TotalBlocks()
}

// ImplementationBytes is the estimated total hardware size: data storage
// plus per-line overhead, rounded up to bytes (E4.2).
func (c *Cache) ImplementationBytes() uint64 {
	bits := c.TotalBlocks()*c.blockBytes*8 + c.TotalBlocks()*c.metaBitsPerLine()
	return (bits + 7) / 8
}

// dollarsPerKiB is the chip-cost rate from §6.
const dollarsPerKiB = 0.07

// ChipCostDollars prices the full implementation size at $0.07/KiB.
func (c *Cache) ChipCostDollars() float64 {
	return float64(c.ImplementationBytes()) / 1024 * dollarsPerKiB
}

// WasteKiB is the unused-block capacity (data + per-block metadata) in
// KiB, per the §9 Open Question resolution.
func (c *Cache) WasteKiB() float64 {
	return float64(c.UnusedBlocks()*(c.blockBytes+c.MetaBytesPerBlock())) / 1024
}

// WasteDollars prices WasteKiB at $0.07/KiB.
func (c *Cache) WasteDollars() float64 {
	return c.WasteKiB() * dollarsPerKiB
}

// HitRatePercent is 100 * hits / block_accesses, per §6.
func (c *Cache) HitRatePercent() float64 {
	if c.Stats.BlockAccesses == 0 {
		return 0
	}
	return 100 * float64(c.Stats.Hits) / float64(c.Stats.BlockAccesses)
}

func (c *Cache) decode(physicalBase uint64) (tag, index uint64) {
	tag = physicalBase >> (c.offsetBits + c.indexBits)
	index = (physicalBase >> c.offsetBits) & (c.numSets - 1)
	return
}

// blockBases returns the block-aligned bases covered by [addr, addr+length).
func (c *Cache) blockBases(physicalAddress, byteLength uint64) []uint64 {
	first := physicalAddress &^ (c.blockBytes - 1)
	last := (physicalAddress + byteLength - 1) &^ (c.blockBytes - 1)

	var bases []uint64
	for base := first; base <= last; base += c.blockBytes {
		bases = append(bases, base)
	}
	return bases
}

// Access simulates one logical memory access, possibly spanning several
// blocks, and returns the total cycle cost.
func (c *Cache) Access(physicalAddress, byteLength uint64) uint64 {
	c.Stats.Addresses++

	var cycles uint64
	for _, base := range c.blockBases(physicalAddress, byteLength) {
		c.Stats.BlockAccesses++
		cycles += c.accessBlock(base)
	}

	return cycles
}

func (c *Cache) accessBlock(base uint64) uint64 {
	tag, index := c.decode(base)
	s := &c.sets[index]

	for i := range s.lines {
		if s.lines[i].Valid && s.lines[i].Tag == tag {
			c.Stats.Hits++
			return 1
		}
	}

	c.Stats.Misses++

	way, compulsory := c.victim(s)
	if compulsory {
		c.Stats.CompulsoryMisses++
	} else {
		c.Stats.ConflictMisses++
	}

	s.lines[way].Valid = true
	s.lines[way].Tag = tag

	blockWords := (c.blockBytes + 3) / 4
	return 4 * blockWords
}

// victim picks a line to install into, preferring the first invalid line
// (never filled, or invalidated since; counted as compulsory) and falling
// back to the configured replacement policy (conflict).
func (c *Cache) victim(s *set) (way int, compulsory bool) {
	for i := range s.lines {
		if !s.lines[i].Valid {
			return i, true
		}
	}

	switch c.policy {
	case PolicyRandom:
		return c.rng.Intn(int(c.associativity)), false
	default: // PolicyRR
		way := s.rrCursor
		s.rrCursor = (s.rrCursor + 1) % int(c.associativity)
		return way, false
	}
}

// InvalidateRange clears the valid bit of every line whose block falls in
// [physicalBase, physicalBase+length), if it's currently resident. It never
// touches statistics — satisfies the frame.InvalidationSink capability.
func (c *Cache) InvalidateRange(physicalBase, length uint64) {
	base := physicalBase &^ (c.blockBytes - 1)
	end := physicalBase + length

	for b := base; b < end; b += c.blockBytes {
		tag, index := c.decode(b)
		s := &c.sets[index]
		for i := range s.lines {
			if s.lines[i].Valid && s.lines[i].Tag == tag {
				s.lines[i].Valid = false
			}
		}
	}
}
