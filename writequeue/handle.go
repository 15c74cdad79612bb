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

package writequeue

import "time"

// CtlKind distinguishes the control messages a Handle may post to its
// owning worker outside of the plain data queue.
type CtlKind uint8

const (
	CtlClose CtlKind = iota
	CtlCloseNow
	CtlTriggerOnRead
)

// Ctl is a control message addressed to a connection id, consumed by the
// owning worker's control channel during its drain step.
type Ctl struct {
	ConnID uint64
	Kind   CtlKind
}

// Handle is the small, cloneable (copy by value) value user code and other
// threads hold to act on a connection without touching its socket
// directly. It carries just enough to enqueue data on the shared Queue and
// to wake the owning worker so the write gets flushed promptly.
type Handle struct {
	id   uint64
	q    *Queue
	wake func()
	ctl  chan<- Ctl
}

// NewHandle builds a Handle bound to a connection id, its Queue, the
// function that wakes the owning worker's poller, and the control channel
// the worker drains on every loop iteration.
func NewHandle(id uint64, q *Queue, wake func(), ctl chan<- Ctl) Handle {
	return Handle{id: id, q: q, wake: wake, ctl: ctl}
}

func (h Handle) ID() uint64 {
	return h.id
}

func (h Handle) IsZero() bool {
	return h.q == nil
}

// Write enqueues p for delivery and wakes the owning worker. It never
// blocks and never touches the socket: the actual write happens on the
// worker's own goroutine.
func (h Handle) Write(p []byte) {
	h.WriteDelayed(p, time.Time{})
}

// WriteDelayed enqueues p to be eligible for delivery only once notBefore
// has elapsed, supporting throttled/paced outbound callers.
func (h Handle) WriteDelayed(p []byte, notBefore time.Time) {
	if h.q == nil {
		return
	}
	cp := make([]byte, len(p))
	copy(cp, p)

	wasEmpty := h.q.Push(Entry{Data: cp, NotBefore: notBefore})
	if wasEmpty && h.wake != nil {
		h.wake()
	}
}

// Close requests a graceful close: the connection is shut down once its
// outbound queue has fully drained.
func (h Handle) Close() {
	h.q.RequestClose()
	h.sendCtl(CtlClose)
}

// CloseNow requests an immediate close, discarding any pending writes.
func (h Handle) CloseNow() {
	h.sendCtl(CtlCloseNow)
}

// TriggerOnRead asks the owning worker to invoke the read callback for
// this connection even though no bytes arrived, e.g. to let a protocol
// handler resume processing already-buffered data.
func (h Handle) TriggerOnRead() {
	h.sendCtl(CtlTriggerOnRead)
}

func (h Handle) sendCtl(k CtlKind) {
	if h.ctl == nil {
		return
	}
	select {
	case h.ctl <- Ctl{ConnID: h.id, Kind: k}:
	default:
		// control channel is full: the message is dropped. A Close is still
		// honored through the queue's closing flag; a dropped CloseNow or
		// TriggerOnRead leaves no other trace and is lost.
	}
	if h.wake != nil {
		h.wake()
	}
}
