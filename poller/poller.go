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

// Package poller wraps the OS's edge-triggered readiness notification
// facility (epoll on Linux, kqueue on BSD/Darwin) behind one small
// interface, plus a cross-thread Trigger a write handle on another
// goroutine can use to wake a worker blocked in Wait.
package poller

import "time"

// Event is one readiness notification for a registered handle.
type Event struct {
	Handle   int
	Readable bool
	Writable bool
	Error    bool
	// Woken is set on the synthetic event produced by Trigger, carrying no
	// handle of interest -- it only exists to unblock Wait.
	Woken bool
}

// Poll is the edge-triggered readiness multiplexer a worker drives its
// entire loop from. A Poll is owned by exactly one goroutine except for
// Trigger, which is safe to call from any goroutine.
type Poll interface {
	// Register starts edge-triggered notification for handle, watching for
	// read and/or write readiness.
	Register(handle int, readable, writable bool) error
	// Modify changes which directions are being watched for handle.
	Modify(handle int, readable, writable bool) error
	// Deregister stops notifications for handle.
	Deregister(handle int) error
	// Wait blocks up to timeout for readiness events, appending them to
	// dst and returning the extended slice. A zero or negative timeout
	// blocks indefinitely; EINTR is retried internally and never
	// surfaced to the caller.
	Wait(dst []Event, timeout time.Duration) ([]Event, error)
	// Trigger posts a synthetic wakeup, causing a concurrent Wait to
	// return promptly with a Woken event. Safe to call from any
	// goroutine, including from the polling goroutine itself.
	Trigger() error
	// Close releases the poller's OS resources.
	Close() error
}
