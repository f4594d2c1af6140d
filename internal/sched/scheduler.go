// Package sched implements the trace scheduler (C4): round-robin
// time-slicing across concurrent trace streams, each driving its own
// virtual memory context into the shared cache, plus the coordinator
// wiring step that connects the frame pool's eviction notifications to
// the cache's invalidation entry point (§9).
//
// Grounded on the teacher's internal/runtime/actor_system.go round-robin
// mailbox-draining loop, generalized from bounded message draining per
// actor per tick to bounded trace-record draining per stream per slice.
package sched

import (
	"io"

	"github.com/memsim-project/memsim/internal/cache"
	"github.com/memsim-project/memsim/internal/frame"
	"github.com/memsim-project/memsim/internal/trace"
	"github.com/memsim-project/memsim/internal/vmem"
)

// Stream is one independent trace source bound to its own VM context.
type Stream struct {
	PID      uint32
	VM       *vmem.Context
	Reader   *trace.Reader
	finished bool

	Instructions uint64
}

// NewStream builds a Stream for a trace reader, allocating it a fresh VM
// context against the shared pool.
func NewStream(pid uint32, vaBits uint, pageBytes uint64, pool *frame.Pool, reader *trace.Reader) (*Stream, error) {
	vm, err := vmem.New(pid, vaBits, pageBytes, pool)
	if err != nil {
		return nil, err
	}

	return &Stream{PID: pid, VM: vm, Reader: reader}, nil
}

// Scheduler drives a set of streams against a shared pool and cache.
type Scheduler struct {
	pool    *frame.Pool
	cache   *cache.Cache
	streams []*Stream

	TotalCycles       uint64
	TotalInstructions uint64
}

// NewCoordinator wires the pool's eviction notifications into the cache's
// invalidation entry point and returns a Scheduler ready to Run. This is
// the "thin coordinator" from §9: the pool never references the cache
// type directly, only the frame.InvalidationSink capability.
func NewCoordinator(pool *frame.Pool, c *cache.Cache, streams []*Stream) *Scheduler {
	pool.BindSink(c)
	return &Scheduler{pool: pool, cache: c, streams: streams}
}

// Run executes every stream to completion, time-slicing between them.
// timeSlice is the maximum number of records one stream executes before
// rotating to the next; -1 means run a stream to EOF once it's its turn.
func (s *Scheduler) Run(timeSlice int) {
	active := len(s.streams)

	for active > 0 {
		for _, st := range s.streams {
			if st.finished {
				continue
			}

			consumed := 0
			for timeSlice < 0 || consumed < timeSlice {
				rec, err := st.Reader.Next()
				if err == io.EOF {
					st.finished = true
					active--
					s.pool.FreeForProcess(st.PID)

					break
				}

				s.perRecord(st, rec)
				consumed++
			}
		}
	}
}

// perRecord drives one trace record through translation and cache access,
// in the required EIP → src → dst order (§4.4).
func (s *Scheduler) perRecord(st *Stream, rec *trace.Record) {
	eip, err := st.VM.Translate(rec.InstrAddr, false)
	if err == nil {
		cycles := s.cache.Access(eip, uint64(rec.InstrLen))
		s.cache.Stats.InstructionBytes += uint64(rec.InstrLen)
		s.TotalCycles += cycles + 2
	}
	s.TotalInstructions++
	st.Instructions++

	if rec.HasSrc {
		if phys, err := st.VM.Translate(rec.SrcAddr, false); err == nil {
			cycles := s.cache.Access(phys, 4)
			s.cache.Stats.SrcDstBytes += 4
			s.TotalCycles += cycles + 1
		}
	}

	if rec.HasDst {
		if phys, err := st.VM.Translate(rec.DstAddr, true); err == nil {
			cycles := s.cache.Access(phys, 4)
			s.cache.Stats.SrcDstBytes += 4
			s.TotalCycles += cycles + 1
		}
	}
}
