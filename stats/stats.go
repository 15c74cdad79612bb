/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package stats carries the reactor's counters: a per-worker thread-local
// accumulator, reset at each reporting tick, and an atomic publication slot
// the controller's WaitForStats reads without touching worker-owned state.
package stats

import "sync/atomic"

// Snapshot is one reporting tick's worth of counters plus current gauges.
type Snapshot struct {
	Accepts         uint64
	Reads           uint64
	Writes          uint64
	BytesIn         uint64
	BytesOut        uint64
	Closes          uint64
	Errors          uint64
	OpenConnections int64
	SlabsInUse      int64
}

// Add returns the element-wise sum of s and o, used to aggregate several
// workers' published snapshots into one process-wide view.
func (s Snapshot) Add(o Snapshot) Snapshot {
	return Snapshot{
		Accepts:         s.Accepts + o.Accepts,
		Reads:           s.Reads + o.Reads,
		Writes:          s.Writes + o.Writes,
		BytesIn:         s.BytesIn + o.BytesIn,
		BytesOut:        s.BytesOut + o.BytesOut,
		Closes:          s.Closes + o.Closes,
		Errors:          s.Errors + o.Errors,
		OpenConnections: s.OpenConnections + o.OpenConnections,
		SlabsInUse:      s.SlabsInUse + o.SlabsInUse,
	}
}

// Counters is the thread-local accumulator a single worker mutates without
// any synchronization: it is only ever touched by its owning goroutine.
type Counters struct {
	accepts  uint64
	reads    uint64
	writes   uint64
	bytesIn  uint64
	bytesOut uint64
	closes   uint64
	errors   uint64
}

func (c *Counters) AddAccept()            { c.accepts++ }
func (c *Counters) AddRead(n int)         { c.reads++; c.bytesIn += uint64(n) }
func (c *Counters) AddWrite(n int)        { c.writes++; c.bytesOut += uint64(n) }
func (c *Counters) AddClose()             { c.closes++ }
func (c *Counters) AddError()             { c.errors++ }

// Reset zeroes the counters, keeping the gauges out of band (the caller
// supplies current open-connection/slabs-in-use values at Snapshot time).
func (c *Counters) Reset() {
	*c = Counters{}
}

// Snapshot captures the counters alongside the given live gauges.
func (c *Counters) Snapshot(openConnections, slabsInUse int64) Snapshot {
	return Snapshot{
		Accepts:         c.accepts,
		Reads:           c.reads,
		Writes:          c.writes,
		BytesIn:         c.bytesIn,
		BytesOut:        c.bytesOut,
		Closes:          c.closes,
		Errors:          c.errors,
		OpenConnections: openConnections,
		SlabsInUse:      slabsInUse,
	}
}

// Slot is the shared publication point a worker writes its latest snapshot
// to and WaitForStats reads from, with no locking on either side.
type Slot struct {
	v atomic.Pointer[Snapshot]
}

func (s *Slot) Publish(snap Snapshot) {
	s.v.Store(&snap)
}

func (s *Slot) Load() Snapshot {
	p := s.v.Load()
	if p == nil {
		return Snapshot{}
	}
	return *p
}
