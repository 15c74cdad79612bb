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

// Package slab is a fixed-size block pool with a free list threaded through
// the idle blocks themselves, used by a worker as the backing store for
// chained per-connection read buffers.
package slab

import (
	"github.com/nabbar/evh/evherr"
	liberr "github.com/nabbar/evh/errors"
)

// ID identifies a single slab within a Store. IDs run from 0 to
// slabCount-1; the zero value is a valid ID (the first one Allocate hands
// out), and "no slab" is the NoNext sentinel instead.
type ID uint32

// noNext is the sentinel next-pointer value meaning "end of chain".
const noNext ID = 1<<32 - 1

// Store is a single contiguous backing array of slabSize*slabCount bytes,
// carved into slabCount fixed-size blocks. Allocation and release are O(1)
// and allocation-free after New.
//
// A Store is not safe for concurrent use: it is owned exclusively by one
// worker goroutine.
type Store struct {
	buf       []byte
	slabSize  uint32
	slabCount uint32
	free      ID
	inUse     int
	allocated []bool // only populated under the evh_debug build tag
}

// New allocates a Store of slabCount blocks of slabSize bytes each, threading
// the free list through the blocks' trailing bytes.
func New(slabSize, slabCount int) (*Store, liberr.Error) {
	if slabSize < 1 {
		return nil, evherr.Newf(evherr.ConfigurationError, "slab size must be positive, got %d", slabSize)
	}
	if slabCount < 1 {
		return nil, evherr.Newf(evherr.ConfigurationError, "slab count must be positive, got %d", slabCount)
	}

	s := &Store{
		buf:       make([]byte, slabSize*slabCount),
		slabSize:  uint32(slabSize),
		slabCount: uint32(slabCount),
	}

	initDebugTracking(s)

	for i := uint32(0); i < s.slabCount; i++ {
		next := noNext
		if i+1 < s.slabCount {
			next = ID(i + 1)
		}
		s.setNext(ID(i), next)
	}
	s.free = 0

	return s, nil
}

// SlabSize returns the total length (in bytes) of every slab, including
// the 4 trailing bytes used for the free-list/chain pointer; the usable
// payload (see Payload) is SlabSize()-4 bytes.
func (s *Store) SlabSize() int {
	return int(s.slabSize)
}

// Count returns the total number of slabs managed by the Store.
func (s *Store) Count() int {
	return int(s.slabCount)
}

// InUse returns the number of slabs currently allocated.
func (s *Store) InUse() int {
	return s.inUse
}

// Allocate pops the next free slab id, or fails with evherr.SlabExhausted
// when the free list is empty.
func (s *Store) Allocate() (ID, liberr.Error) {
	if s.free == noNext {
		return 0, evherr.New(evherr.SlabExhausted)
	}

	id := s.free
	s.free = s.next(id)
	s.inUse++

	markAllocated(s, id)

	return id, nil
}

// Free returns id to the free list. Freeing an id that is not currently
// allocated is a programmer error; it is only detected under the evh_debug
// build tag, matching spec's "double-free ... must be detected in debug
// builds, release path allocation-free and branch-light" requirement.
func (s *Store) Free(id ID) {
	checkDoubleFree(s, id)

	s.setNext(id, s.free)
	s.free = id
	s.inUse--
}

// Get returns the payload window of id: slabSize-4 usable bytes followed by
// the 4-byte chain pointer.
func (s *Store) Get(id ID) []byte {
	off := uint32(id) * s.slabSize
	return s.buf[off : off+s.slabSize]
}

// GetMut is an alias of Get kept for call sites that want to make the
// mutable-access intent explicit; slices share the same backing array.
func (s *Store) GetMut(id ID) []byte {
	return s.Get(id)
}

// Payload returns the usable (non-chain-pointer) window of id.
func (s *Store) Payload(id ID) []byte {
	b := s.Get(id)
	return b[:len(b)-4]
}

// Next returns the next slab id chained after id, or false when id is the
// tail of its chain (or free).
func (s *Store) Next(id ID) (ID, bool) {
	n := s.next(id)
	return n, n != noNext
}

// SetNext sets the chain pointer of id to point at next (or clears it when
// next is NoNext()).
func (s *Store) SetNext(id, next ID) {
	s.setNext(id, next)
}

// NoNext returns the sentinel value meaning "no next slab".
func (s *Store) NoNext() ID {
	return noNext
}

func (s *Store) next(id ID) ID {
	b := s.Get(id)
	tail := b[len(b)-4:]
	return ID(uint32(tail[0]) | uint32(tail[1])<<8 | uint32(tail[2])<<16 | uint32(tail[3])<<24)
}

func (s *Store) setNext(id, next ID) {
	b := s.Get(id)
	tail := b[len(b)-4:]
	v := uint32(next)
	tail[0] = byte(v)
	tail[1] = byte(v >> 8)
	tail[2] = byte(v >> 16)
	tail[3] = byte(v >> 24)
}
