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
	"time"

	"github.com/nabbar/evh/connection"
	"github.com/nabbar/evh/poller"
	"github.com/nabbar/evh/writequeue"
)

// Run is the worker's main loop: steps 1-6 of the reactor's worker-thread
// design, repeated until Stop is called.
func (w *Worker) Run() {
	defer close(w.stopped)

	events := make([]poller.Event, 0, 256)

	for {
		w.drainCommands()
		w.drainCtl()
		w.flushPending()
		w.retryPendingReads()

		if w.stopping.Load() {
			w.shutdown()
			return
		}

		var err error
		events, err = w.poll.Wait(events[:0], w.cfg.Timeout)
		if err != nil {
			if w.log != nil {
				w.log.Error("poller wait failed", err)
			}
			continue
		}

		for _, ev := range events {
			if ev.Woken {
				continue
			}
			c, ok := w.byHandle[ev.Handle]
			if !ok {
				continue
			}
			if ev.Error {
				c.Close()
				continue
			}
			if ev.Readable {
				w.readUntilDrained(c)
			}
			if ev.Writable && !c.Closed() {
				w.flushQueue(c)
			}
		}

		now := time.Now()
		if now.Sub(w.lastHousekeeper) >= w.cfg.HousekeeperFrequency {
			w.lastHousekeeper = now
			if w.cb.OnHousekeeper != nil {
				w.safeCall(0, func() error { return w.cb.OnHousekeeper(w) })
			}
		}

		if now.Sub(w.lastStats) >= w.cfg.StatsFrequency {
			w.lastStats = now
			w.publishStats()
		}

		w.reapClosed()
	}
}

// flushPending attempts delivery on every connection with a non-empty
// outbound queue or a pending close request. It is step 1's "writes
// enqueued from other threads" drain, generalized to also cover same-thread
// writes a callback just pushed: the queue itself, not a dedicated
// readiness event, is the signal that a flush is due. A close requested on
// an already-empty queue is completed here by flushQueue.
func (w *Worker) flushPending() {
	for _, c := range w.byID {
		if !c.Closed() && (c.Queue.Len() > 0 || c.Queue.Closing()) {
			w.flushQueue(c)
		}
	}
}

// retryPendingReads re-attempts readUntilDrained on every connection that
// previously stalled on slab exhaustion. Edge-triggered readiness only
// fires again on new socket activity, so without this sweep a connection
// that filled the slab store mid-read would never resume once a later
// clear_through/clear_all on another connection frees slabs.
func (w *Worker) retryPendingReads() {
	if len(w.readPending) == 0 {
		return
	}
	pending := w.readPending
	w.readPending = make(map[connection.ID]*connection.Conn, len(pending))
	for _, c := range pending {
		if !c.Closed() {
			w.readUntilDrained(c)
		}
	}
}

func (w *Worker) drainCommands() {
	for {
		select {
		case cmd := <-w.cmd:
			w.handleCommand(cmd)
		default:
			return
		}
	}
}

func (w *Worker) handleCommand(cmd Command) {
	switch cmd.Kind {
	case CmdAdopt:
		w.adopt(cmd)
	case CmdShutdown:
		w.stopping.Store(true)
	}
}

func (w *Worker) adopt(cmd Command) {
	c := connection.New(cmd.ConnID, cmd.Handle, cmd.Role, w.index, w.store)
	c.SetWriteHandle(writequeue.NewHandle(uint64(cmd.ConnID), c.Queue, w.Wake, w.ctl))

	if cmd.TLS && w.tls != nil {
		switch cmd.Role {
		case connection.RoleOutboundClient:
			if w.tls.HasClient() {
				c.SetTLS(w.tls.Client(fdConn{fd: cmd.Handle}, ""))
			}
		default:
			if w.tls.HasServer() {
				c.SetTLS(w.tls.Server(fdConn{fd: cmd.Handle}))
			}
		}
	}

	w.byHandle[cmd.Handle] = c
	w.byID[c.ID()] = c
	w.handleCount.Add(1)

	if err := w.poll.Register(cmd.Handle, true, false); err != nil {
		c.Close()
	}

	if w.cb.OnAccept != nil {
		w.safeCall(c.ID(), func() error { return w.cb.OnAccept(c) })
	}
}

func (w *Worker) drainCtl() {
	for {
		select {
		case msg := <-w.ctl:
			w.handleCtl(msg)
		default:
			return
		}
	}
}

func (w *Worker) handleCtl(msg writequeue.Ctl) {
	c, ok := w.byID[connection.ID(msg.ConnID)]
	if !ok {
		return
	}
	switch msg.Kind {
	case writequeue.CtlClose:
		// Queue.RequestClose already set by the Handle; flushQueue will
		// close once drained. Nothing further to do here.
	case writequeue.CtlCloseNow:
		c.Close()
	case writequeue.CtlTriggerOnRead:
		c.ResetCursor()
		w.invokeOnRead(c)
	}
}

func (w *Worker) reapClosed() {
	for handle, c := range w.byHandle {
		if !c.Closed() {
			continue
		}

		_ = w.poll.Deregister(handle)
		delete(w.byHandle, handle)
		delete(w.byID, c.ID())
		delete(w.readPending, c.ID())
		w.handleCount.Add(-1)

		c.ClearAll()
		w.counters.AddClose()

		if w.cb.OnClose != nil {
			w.safeCall(c.ID(), func() error { return w.cb.OnClose(c) })
		}
	}
}

func (w *Worker) shutdown() {
	for handle, c := range w.byHandle {
		c.Close()
		_ = w.poll.Deregister(handle)
		c.ClearAll()

		if w.cb.OnClose != nil {
			w.safeCall(c.ID(), func() error { return w.cb.OnClose(c) })
		}
	}
	w.byHandle = make(map[int]*connection.Conn)
	w.byID = make(map[connection.ID]*connection.Conn)
	_ = w.poll.Close()
}

func (w *Worker) publishStats() {
	snap := w.counters.Snapshot(int64(len(w.byID)), int64(w.store.InUse()))
	w.statsSlot.Publish(snap)
	w.counters.Reset()
}
