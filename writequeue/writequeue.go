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

// Package writequeue is the outbound side of a connection: a mutex-guarded
// list of pending write entries that any goroutine may append to, and that
// only the owning worker ever drains onto the wire.
package writequeue

import (
	"sync"
	"time"
)

// Entry is one pending outbound write. Entries with a non-zero NotBefore are
// time-delayed writes, a feature the reactor's original design left implicit
// but that a real outbound queue needs for pacing/throttled callers.
type Entry struct {
	Data       []byte
	Cursor     int
	CloseAfter bool
	NotBefore  time.Time
}

func (e *Entry) Remaining() []byte {
	return e.Data[e.Cursor:]
}

func (e *Entry) Advance(n int) {
	e.Cursor += n
}

func (e *Entry) Done() bool {
	return e.Cursor >= len(e.Data)
}

// Queue is the per-connection outbound list. It is safe to Push from any
// goroutine; only the owning worker calls Front/Pop/Len, under its own
// single-threaded loop, so those are not separately locked against each
// other -- only against concurrent Push.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	closing bool
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an entry to the tail of the queue. It reports whether the
// queue was empty before the push, which the caller uses to decide whether
// the owning worker needs to be woken.
func (q *Queue) Push(e Entry) (wasEmpty bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	wasEmpty = len(q.entries) == 0
	q.entries = append(q.entries, e)
	return wasEmpty
}

// RequestClose marks the queue to close once drained. CloseNow is expressed
// by the caller dropping the connection directly instead of going through
// the queue.
func (q *Queue) RequestClose() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closing = true
}

func (q *Queue) Closing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closing
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Ready reports whether the front entry (if any) is eligible to be flushed
// now, i.e. has no NotBefore or it has already elapsed.
func (q *Queue) Ready(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return false
	}
	nb := q.entries[0].NotBefore
	return nb.IsZero() || !nb.After(now)
}

// Front returns a copy of the first pending entry and whether one exists.
func (q *Queue) Front() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// AdvanceFront records that n bytes of the front entry were written.
func (q *Queue) AdvanceFront(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return
	}
	q.entries[0].Cursor += n
}

// PopFront removes the front entry once fully written.
func (q *Queue) PopFront() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return
	}
	q.entries = q.entries[1:]
}
