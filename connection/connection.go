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

// Package connection is the reactor's per-socket state: a Role, the chain
// of read slabs a worker has filled for it, its outbound writequeue, and
// the bookkeeping (TLS session, last-activity, attachment) a worker needs
// to drive it without ever touching another connection's memory.
package connection

import (
	"sync/atomic"
	"time"

	"github.com/nabbar/evh/slab"
	"github.com/nabbar/evh/tlsengine"
	"github.com/nabbar/evh/writequeue"
)

// Role distinguishes a listening socket from the two kinds of connected
// peer a worker ever owns.
type Role uint8

const (
	RoleServerListen Role = iota
	RoleServerAccepted
	RoleOutboundClient
)

// ID uniquely identifies a connection for the lifetime of a Controller.
type ID uint64

// Chunk is one contiguous run of already-received bytes, still backed by
// its owning slab. It is only valid until the chunk (or an earlier one in
// the same chain) is cleared.
type Chunk struct {
	Bytes []byte
	Slab  slab.ID
}

// Conn is owned exclusively by the worker goroutine it is registered
// against, except for the fields explicitly documented as safe for
// cross-thread access (Queue, closed, lastActivity, Attachment).
type Conn struct {
	id     ID
	handle int
	role   Role
	worker int

	store *slab.Store
	head  slab.ID
	tail  slab.ID
	have  bool
	tailN int

	cursor      slab.ID
	cursorValid bool

	tls   *tlsengine.Session
	Queue *writequeue.Queue
	wq    writequeue.Handle

	closed       atomic.Bool
	lastActivity atomic.Int64
	attachment   atomic.Value
}

// New builds a Conn bound to the given slab.Store, with an empty read
// chain and a fresh outbound Queue.
func New(id ID, handle int, role Role, worker int, store *slab.Store) *Conn {
	c := &Conn{
		id:     id,
		handle: handle,
		role:   role,
		worker: worker,
		store:  store,
		head:   store.NoNext(),
		tail:   store.NoNext(),
		Queue:  writequeue.NewQueue(),
	}
	c.Touch(time.Now())
	return c
}

func (c *Conn) ID() ID          { return c.id }
func (c *Conn) Handle() int     { return c.handle }
func (c *Conn) Role() Role      { return c.role }
func (c *Conn) Worker() int     { return c.worker }
func (c *Conn) SetTLS(s *tlsengine.Session) { c.tls = s }
func (c *Conn) TLS() *tlsengine.Session     { return c.tls }

// SetWriteHandle installs the cross-thread Handle a worker builds for this
// connection at adopt time.
func (c *Conn) SetWriteHandle(h writequeue.Handle) { c.wq = h }

// WriteHandle returns the cloneable, cross-thread-safe handle other
// goroutines use to enqueue writes or request a close without ever
// touching the connection's worker-owned state directly.
func (c *Conn) WriteHandle() writequeue.Handle { return c.wq }

func (c *Conn) Close()        { c.closed.Store(true) }
func (c *Conn) Closed() bool  { return c.closed.Load() }

func (c *Conn) Touch(t time.Time) {
	c.lastActivity.Store(t.UnixMilli())
}

func (c *Conn) LastActivity() time.Time {
	return time.UnixMilli(c.lastActivity.Load())
}

func (c *Conn) SetAttachment(v any) { c.attachment.Store(boxAttachment{v}) }
func (c *Conn) Attachment() any {
	v := c.attachment.Load()
	if v == nil {
		return nil
	}
	return v.(boxAttachment).v
}

// boxAttachment lets a nil or interface-typed attachment round-trip
// through atomic.Value, which rejects storing inconsistent concrete types.
type boxAttachment struct{ v any }

// AppendSlab links a freshly filled slab onto the tail of the read chain.
// n is the number of payload bytes used within it.
func (c *Conn) AppendSlab(id slab.ID, n int) {
	if !c.have {
		c.head = id
		c.tail = id
		c.have = true
	} else {
		c.store.SetNext(c.tail, id)
		c.tail = id
	}
	c.store.SetNext(id, c.store.NoNext())
	c.tailN = n
}

// HasData reports whether the connection has any unconsumed read data.
func (c *Conn) HasData() bool {
	return c.have
}

// NextChunk advances the internal read cursor and returns the next
// unconsumed chunk of the read chain, or false once the tail is exhausted.
// A chunk for the chain's tail slab is truncated to the bytes actually
// filled (tailLen); bytes beyond that are never exposed, matching the
// trailing 4 chain-pointer bytes also never being exposed.
func (c *Conn) NextChunk() (Chunk, bool) {
	if !c.have {
		return Chunk{}, false
	}

	var id slab.ID
	if !c.cursorValid {
		id = c.head
	} else {
		n, ok := c.store.Next(c.cursor)
		if !ok {
			return Chunk{}, false
		}
		id = n
	}

	c.cursor = id
	c.cursorValid = true

	payload := c.store.Payload(id)
	if id == c.tail {
		payload = payload[:c.tailN]
	}
	return Chunk{Bytes: payload, Slab: id}, true
}

// ResetCursor rewinds NextChunk to replay the chain from the head again,
// used when a protocol handler needs to re-scan unconsumed data (e.g.
// after TriggerOnRead).
func (c *Conn) ResetCursor() {
	c.cursorValid = false
}

// ClearThrough frees every slab from the head of the chain up to and
// including upTo, advancing the head to whatever followed it. It is used
// once a caller has fully consumed a prefix of the buffered bytes.
func (c *Conn) ClearThrough(upTo slab.ID) {
	if !c.have {
		return
	}

	id := c.head
	for {
		next, hasNext := c.store.Next(id)
		wasTarget := id == upTo
		c.store.Free(id)

		if wasTarget {
			if id == c.tail {
				c.head = c.store.NoNext()
				c.tail = c.store.NoNext()
				c.have = false
				c.tailN = 0
			} else {
				c.head = next
			}
			c.cursorValid = false
			return
		}

		if !hasNext {
			// upTo was not found in the chain: nothing more to free.
			c.head = c.store.NoNext()
			c.tail = c.store.NoNext()
			c.have = false
			c.tailN = 0
			c.cursorValid = false
			return
		}
		id = next
	}
}

// ClearAll frees the entire read chain and resets the connection to an
// empty read state.
func (c *Conn) ClearAll() {
	if !c.have {
		return
	}
	c.ClearThrough(c.tail)
}
