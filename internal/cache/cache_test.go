package cache

import "testing"

// TestPureCompulsoryStream covers §8 scenario 1: a direct-mapped cache
// accessed with 64 distinct, block-aligned addresses should report only
// compulsory misses.
func TestPureCompulsoryStream(t *testing.T) {
	c, err := New(1024, 16, 1, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for addr := uint64(0); addr < 1024; addr += 16 {
		c.Access(addr, 1)
	}

	if c.Stats.Misses != 64 || c.Stats.CompulsoryMisses != 64 || c.Stats.ConflictMisses != 0 {
		t.Fatalf("got misses=%d compulsory=%d conflict=%d, want 64/64/0",
			c.Stats.Misses, c.Stats.CompulsoryMisses, c.Stats.ConflictMisses)
	}
	if c.Stats.Hits != 0 {
		t.Fatalf("got hits=%d, want 0", c.Stats.Hits)
	}
}

// TestPureHitsOnReplay covers §8 scenario 2: replaying the same accesses
// immediately should hit every time.
func TestPureHitsOnReplay(t *testing.T) {
	c, err := New(1024, 16, 1, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for addr := uint64(0); addr < 1024; addr += 16 {
		c.Access(addr, 1)
	}
	for addr := uint64(0); addr < 1024; addr += 16 {
		c.Access(addr, 1)
	}

	if c.Stats.Hits != 64 || c.Stats.Misses != 64 {
		t.Fatalf("got hits=%d misses=%d, want 64/64", c.Stats.Hits, c.Stats.Misses)
	}
}

// TestConflictTriggerDirectMapped covers §8 scenario 3: with associativity
// 1, RR and Random behave identically. Addresses 0 and 64 both map to set
// 0, whose single line is filled by the first access (compulsory); every
// later access finds that line valid and evicts it (conflict).
func TestConflictTriggerDirectMapped(t *testing.T) {
	for _, policy := range []Policy{PolicyRR, PolicyRandom} {
		c, err := New(64, 16, 1, policy, 32)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		for _, addr := range []uint64{0, 64, 0, 64} {
			c.Access(addr, 1)
		}

		if c.Stats.Misses != 4 || c.Stats.CompulsoryMisses != 1 || c.Stats.ConflictMisses != 3 {
			t.Fatalf("policy %v: got misses=%d compulsory=%d conflict=%d, want 4/1/3",
				policy, c.Stats.Misses, c.Stats.CompulsoryMisses, c.Stats.ConflictMisses)
		}
		if c.Stats.Hits != 0 {
			t.Fatalf("policy %v: got hits=%d, want 0", policy, c.Stats.Hits)
		}
	}
}

// TestSpanAcrossTwoBlocks covers §8 scenario 4: one access spanning two
// block bases counts as one address but two block-accesses.
func TestSpanAcrossTwoBlocks(t *testing.T) {
	c, err := New(64, 16, 1, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cycles := c.Access(14, 8)

	if c.Stats.Addresses != 1 {
		t.Fatalf("got addresses=%d, want 1", c.Stats.Addresses)
	}
	if c.Stats.BlockAccesses != 2 {
		t.Fatalf("got block-accesses=%d, want 2", c.Stats.BlockAccesses)
	}
	if c.Stats.Misses != 2 || c.Stats.CompulsoryMisses != 2 {
		t.Fatalf("got misses=%d compulsory=%d, want 2/2", c.Stats.Misses, c.Stats.CompulsoryMisses)
	}
	if cycles != 32 {
		t.Fatalf("got cycles=%d, want 32", cycles)
	}
}

// TestInvalidateRangeIdempotent exercises the invalidate-is-idempotent law
// from §8: invalidating twice leaves the same state as invalidating once,
// and a subsequent access to the range misses.
func TestInvalidateRangeIdempotent(t *testing.T) {
	c, err := New(1024, 16, 1, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Access(0, 1)
	c.InvalidateRange(0, 16)
	c.InvalidateRange(0, 16)

	before := c.Stats.Misses
	c.Access(0, 1)
	if c.Stats.Misses != before+1 {
		t.Fatalf("expected a miss after invalidation, misses went %d -> %d", before, c.Stats.Misses)
	}
}

// TestRoundRobinDeterminism covers the determinism law: identical inputs
// produce identical hit/miss sequences with RR.
func TestRoundRobinDeterminism(t *testing.T) {
	run := func() Stats {
		c, err := New(64, 16, 2, PolicyRR, 32)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		for _, addr := range []uint64{0, 64, 128, 0, 64, 128} {
			c.Access(addr, 1)
		}
		return c.Stats
	}

	a, b := run(), run()
	if a != b {
		t.Fatalf("RR runs diverged: %+v vs %+v", a, b)
	}
}

// TestDistinctTagsPerSet enforces invariant 1 from §8: at most one valid
// line per tag within a set.
func TestDistinctTagsPerSet(t *testing.T) {
	c, err := New(64, 16, 2, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, addr := range []uint64{0, 16, 32, 48, 64, 80} {
		c.Access(addr, 1)
	}

	for _, s := range c.sets {
		seen := map[uint64]bool{}
		for _, l := range s.lines {
			if !l.Valid {
				continue
			}
			if seen[l.Tag] {
				t.Fatalf("duplicate valid tag %d in one set", l.Tag)
			}
			seen[l.Tag] = true
		}
	}
}

// TestCompulsoryBoundedByCapacity enforces invariant 4: compulsory misses
// can never exceed num_sets * associativity.
func TestCompulsoryBoundedByCapacity(t *testing.T) {
	c, err := New(1024, 16, 4, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for addr := uint64(0); addr < 1024*4; addr += 16 {
		c.Access(addr, 1)
	}

	if c.Stats.CompulsoryMisses > c.NumSets()*c.Associativity() {
		t.Fatalf("compulsory misses %d exceed capacity %d", c.Stats.CompulsoryMisses, c.NumSets()*c.Associativity())
	}
}

func TestFullyAssociativeGeometry(t *testing.T) {
	// -a -1: associativity resolved to total blocks, one set.
	totalBlocks := uint64(1024 / 16)
	c, err := New(1024, 16, totalBlocks, PolicyRR, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.NumSets() != 1 {
		t.Fatalf("got numSets=%d, want 1", c.NumSets())
	}
	if c.Associativity() != totalBlocks {
		t.Fatalf("got associativity=%d, want %d", c.Associativity(), totalBlocks)
	}
}

func TestNewRejectsBadGeometry(t *testing.T) {
	cases := []struct {
		name                          string
		cacheBytes, blockBytes, assoc uint64
	}{
		{"block not power of two", 1024, 24, 1},
		{"size not a multiple of block times associativity", 1024, 16, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cacheBytes, tc.blockBytes, tc.assoc, PolicyRR, 32); err == nil {
				t.Fatal("expected InvalidConfig, got nil")
			}
		})
	}
}
