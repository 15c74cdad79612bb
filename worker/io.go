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

package worker

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/nabbar/evh/connection"
	"github.com/nabbar/evh/evherr"
)

// netConn returns the net.Conn a connection should actually be read from
// and written to: the TLS record layer when one is attached, the raw fd
// wrapper otherwise.
func (w *Worker) netConn(c *connection.Conn) net.Conn {
	if s := c.TLS(); s != nil {
		return s.Conn()
	}
	return fdConn{fd: c.Handle()}
}

// readUntilDrained reads from c's socket (or TLS session) into its tail
// slab, chaining a new one whenever the current tail fills, until EAGAIN
// or the slab store is exhausted. It then invokes OnRead with an iterator
// over any newly available chunks.
func (w *Worker) readUntilDrained(c *connection.Conn) {
	if s := c.TLS(); s != nil && !s.HandshakeComplete() {
		ok, err := s.Handshake(context.Background())
		if err != nil {
			w.failConn(c, err)
			return
		}
		if !ok {
			return
		}
	}

	conn := w.netConn(c)
	any := false
	exhausted := false

	for {
		id, slabErr := w.store.Allocate()
		if slabErr != nil {
			// SlabExhausted: pause reads on this connection; retryPendingReads
			// re-attempts it on every later loop iteration, so it resumes as
			// soon as a clear_through/clear_all anywhere frees a slab.
			exhausted = true
			break
		}

		payload := w.store.Payload(id)
		n, err := conn.Read(payload)
		if n > 0 {
			c.AppendSlab(id, n)
			c.Touch(time.Now())
			w.counters.AddRead(n)
			any = true
		} else {
			w.store.Free(id)
		}

		if err != nil {
			if isAgain(err) {
				break
			}
			if err == io.EOF || err == net.ErrClosed {
				c.Close()
				return
			}
			w.failConn(c, evherr.New(evherr.IoError, err))
			return
		}

		if n == 0 || n < len(payload) {
			// drained for now, even without EAGAIN: a zero-length or short
			// read is common right after a partial TLS record.
			break
		}
	}

	if exhausted {
		w.readPending[c.ID()] = c
	} else {
		delete(w.readPending, c.ID())
	}

	if any {
		w.invokeOnRead(c)
	}
}

func (w *Worker) invokeOnRead(c *connection.Conn) {
	if w.cb.OnRead == nil {
		return
	}
	ctx := &ReadContext{conn: c}
	w.safeCall(c.ID(), func() error {
		return w.cb.OnRead(c, ctx)
	})
}

// flushQueue delivers as much of c's outbound queue as the socket accepts
// right now, stopping on EAGAIN (the remainder stays queued and Run's
// flushPending sweep retries it on the next loop iteration) or on an error
// (which closes the connection).
func (w *Worker) flushQueue(c *connection.Conn) {
	conn := w.netConn(c)
	now := time.Now()

	for c.Queue.Ready(now) {
		e, ok := c.Queue.Front()
		if !ok {
			break
		}

		n, err := conn.Write(e.Remaining())
		if n > 0 {
			c.Queue.AdvanceFront(n)
			c.Touch(time.Now())
			w.counters.AddWrite(n)
		}
		if err != nil {
			if isAgain(err) {
				break
			}
			w.failConn(c, evherr.New(evherr.IoError, err))
			return
		}

		front, _ := c.Queue.Front()
		if front.Done() {
			c.Queue.PopFront()
		} else {
			break
		}
	}

	if c.Queue.Len() == 0 && c.Queue.Closing() {
		c.Close()
	}
}

func (w *Worker) failConn(c *connection.Conn, _ error) {
	w.counters.AddError()
	c.Close()
}
