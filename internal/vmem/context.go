// Package vmem implements the per-process virtual memory translator (C2):
// a flat page table backed by the shared physical frame pool, with lazy
// invalidation of stale entries on silent frame theft.
package vmem

import (
	"math/bits"

	"github.com/memsim-project/memsim/internal/frame"
	"github.com/memsim-project/memsim/internal/simerrors"
)

// PTE is one page table entry.
type PTE struct {
	Frame uint64
	Valid bool
	Dirty bool
	Tick  uint64
}

// Context is one process's virtual address space, sharing pool with every
// other Context in the run.
type Context struct {
	PID        uint32
	vaBits     uint
	pageBytes  uint64
	offsetBits uint
	vpnBits    uint
	table      []PTE
	faults     uint64
	pool       *frame.Pool
}

// New derives offset/VPN bit widths from pageBytes and vaBits and allocates
// an all-invalid page table of length 2^vpnBits.
func New(pid uint32, vaBits uint, pageBytes uint64, pool *frame.Pool) (*Context, error) {
	if pageBytes == 0 || pageBytes&(pageBytes-1) != 0 {
		return nil, simerrors.InvalidConfigf("page size %d is not a positive power of two", pageBytes)
	}

	offsetBits := uint(bits.TrailingZeros64(pageBytes))
	if offsetBits >= vaBits {
		return nil, simerrors.InvalidConfigf("virtual address width %d too small for page size %d", vaBits, pageBytes)
	}

	vpnBits := vaBits - offsetBits

	return &Context{
		PID:        pid,
		vaBits:     vaBits,
		pageBytes:  pageBytes,
		offsetBits: offsetBits,
		vpnBits:    vpnBits,
		table:      make([]PTE, uint64(1)<<vpnBits),
		pool:       pool,
	}, nil
}

// Faults returns the number of translations that required evicting an
// already-valid frame (a true page fault, as opposed to page-from-free).
func (c *Context) Faults() uint64 { return c.faults }

// TableEntries returns the page table length, for per-process usage/waste
// reporting.
func (c *Context) TableEntries() uint64 { return uint64(len(c.table)) }

// TouchedEntries counts how many PTEs have ever been set valid at least
// once, i.e. the "touched" slots for the usage/waste report (E4.1).
func (c *Context) TouchedEntries() uint64 {
	var n uint64
	for _, e := range c.table {
		if e.Tick != 0 {
			n++
		}
	}
	return n
}

// Translate maps a virtual address to a physical address, installing a new
// mapping on first touch or on a stale/evicted PTE, per §4.2.
//
// A PTE is trusted only when the frame it names still reports the same
// (pid, vpn) identity — this lazy check is what lets the frame pool steal
// frames without walking an inverse page table.
func (c *Context) Translate(virtualAddress uint64, isWrite bool) (uint64, error) {
	vpn := virtualAddress >> c.offsetBits
	if vpn >= uint64(len(c.table)) {
		return 0, simerrors.InvalidConfigf("virtual address %#x out of range for %d VPN bits", virtualAddress, c.vpnBits)
	}

	offsetMask := c.pageBytes - 1
	offset := virtualAddress & offsetMask

	tick := c.pool.Tick()
	pte := &c.table[vpn]

	hit := pte.Valid &&
		pte.Frame < c.pool.Used() &&
		func() bool {
			f := c.pool.Frame(pte.Frame)
			return f.Valid && f.PID == c.PID && f.VPN == vpn
		}()

	if !hit {
		idx, wasEviction := c.pool.AllocateOrEvict(c.PID, vpn)
		c.pool.Install(idx, c.PID, vpn, tick, isWrite)
		pte.Frame = idx
		pte.Valid = true
		pte.Tick = tick
		if isWrite {
			pte.Dirty = true
		}
		if wasEviction {
			c.faults++
		}

		return idx*c.pageBytes + offset, nil
	}

	c.pool.Touch(pte.Frame, tick, isWrite)
	pte.Tick = tick
	if isWrite {
		pte.Dirty = true
	}

	return pte.Frame*c.pageBytes + offset, nil
}
