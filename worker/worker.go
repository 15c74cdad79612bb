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

// Package worker is one reactor thread: it owns a poller, a slab store, a
// disjoint set of connections, and runs the serial read/write/housekeeper/
// stats loop described for the reactor's worker thread.
package worker

import (
	"sync/atomic"
	"time"

	"github.com/nabbar/evh/connection"
	liberr "github.com/nabbar/evh/errors"
	"github.com/nabbar/evh/logger"
	loglvl "github.com/nabbar/evh/logger/level"
	"github.com/nabbar/evh/poller"
	"github.com/nabbar/evh/slab"
	"github.com/nabbar/evh/stats"
	"github.com/nabbar/evh/tlsengine"
	"github.com/nabbar/evh/writequeue"
)

// ReadContext is the chunk-iteration surface handed to OnRead: a thin
// pass-through onto the connection's own chain, so the callback never
// touches connection.Conn's worker-private fields directly.
type ReadContext struct {
	conn *connection.Conn
}

func (r *ReadContext) NextChunk() (connection.Chunk, bool) { return r.conn.NextChunk() }
func (r *ReadContext) ClearThrough(id slab.ID)              { r.conn.ClearThrough(id) }
func (r *ReadContext) ClearAll()                            { r.conn.ClearAll() }

type (
	OnAccept      func(c *connection.Conn) error
	OnRead        func(c *connection.Conn, ctx *ReadContext) error
	OnClose       func(c *connection.Conn) error
	OnHousekeeper func(w *Worker) error
	OnPanic       func(id connection.ID, info any) error
)

// Callbacks is the fixed, immutable-after-Start set of five user hooks.
type Callbacks struct {
	OnAccept      OnAccept
	OnRead        OnRead
	OnClose       OnClose
	OnHousekeeper OnHousekeeper
	OnPanic       OnPanic
}

// Config is the subset of the reactor's options a single Worker needs.
type Config struct {
	Index                int
	SlabSize             int
	SlabCount            int
	Timeout              time.Duration
	HousekeeperFrequency time.Duration
	StatsFrequency       time.Duration
	MaxHandles           int
}

// Worker owns one poller, one slab store, and a disjoint set of
// connections. It is driven entirely by its own Run goroutine except for
// the command/ctl channels and the Queue each connection exposes, which
// are safe from any goroutine.
type Worker struct {
	index int
	cfg   Config
	cb    Callbacks
	log   logger.Logger
	tls   *tlsengine.Engine

	poll  poller.Poll
	store *slab.Store

	byHandle map[int]*connection.Conn
	byID     map[connection.ID]*connection.Conn

	cmd chan Command
	ctl chan writequeue.Ctl

	counters  stats.Counters
	statsSlot *stats.Slot

	lastHousekeeper time.Time
	lastStats       time.Time

	handleCount atomic.Int64
	stopping    atomic.Bool
	stopped     chan struct{}

	readPending map[connection.ID]*connection.Conn
}

// New builds a Worker bound to its own poller and slab store. tls may be
// nil for a plaintext-only deployment.
func New(cfg Config, cb Callbacks, log logger.Logger, tls *tlsengine.Engine) (*Worker, liberr.Error) {
	st, err := slab.New(cfg.SlabSize, cfg.SlabCount)
	if err != nil {
		return nil, err
	}

	p, perr := poller.New()
	if perr != nil {
		return nil, perr
	}

	now := time.Now()
	return &Worker{
		index:           cfg.Index,
		cfg:             cfg,
		cb:              cb,
		log:             log,
		tls:             tls,
		poll:            p,
		store:           st,
		byHandle:        make(map[int]*connection.Conn),
		byID:            make(map[connection.ID]*connection.Conn),
		cmd:             make(chan Command, 1024),
		ctl:             make(chan writequeue.Ctl, 4096),
		statsSlot:       &stats.Slot{},
		lastHousekeeper: now,
		lastStats:       now,
		stopped:         make(chan struct{}),
		readPending:     make(map[connection.ID]*connection.Conn),
	}, nil
}

func (w *Worker) Index() int             { return w.index }
func (w *Worker) Store() *slab.Store     { return w.store }
func (w *Worker) StatsSlot() *stats.Slot { return w.statsSlot }
func (w *Worker) HandleCount() int64     { return w.handleCount.Load() }
func (w *Worker) MaxHandles() int        { return w.cfg.MaxHandles }

// Cmd returns the channel a listener posts adopt commands onto.
func (w *Worker) Cmd() chan<- Command { return w.cmd }

// Wake forces a blocked Wait to return promptly.
func (w *Worker) Wake() { _ = w.poll.Trigger() }

// Stop requests cooperative shutdown: the worker finishes its current
// iteration, closes every connection (firing OnClose), and returns from
// Run.
func (w *Worker) Stop() {
	w.stopping.Store(true)
	w.Wake()
}

// Stopped is closed once Run has returned.
func (w *Worker) Stopped() <-chan struct{} { return w.stopped }

// Connections iterates the worker's live connections, for use by
// OnHousekeeper (e.g. ReapIdle).
func (w *Worker) Connections(fn func(*connection.Conn)) {
	for _, c := range w.byID {
		fn(c)
	}
}

// ReapIdle closes every connection whose last activity predates
// now.Add(-idleAfter). It is the supplemented idle-connection reaper,
// meant to be called from OnHousekeeper.
func (w *Worker) ReapIdle(now time.Time, idleAfter time.Duration) {
	cutoff := now.Add(-idleAfter)
	for _, c := range w.byID {
		if c.LastActivity().Before(cutoff) {
			c.Close()
		}
	}
}

func (w *Worker) safeCall(connID connection.ID, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			w.counters.AddError()
			if w.cb.OnPanic != nil {
				_ = w.cb.OnPanic(connID, r)
			}
			if w.log != nil {
				w.log.Entry(loglvl.ErrorLevel, "panic recovered in callback").FieldAdd("connID", connID).FieldAdd("panic", r).Log()
			}
			if c, ok := w.byID[connID]; ok {
				c.Close()
			}
		}
	}()

	if err := fn(); err != nil {
		w.counters.AddError()
		if w.log != nil {
			w.log.Entry(loglvl.ErrorLevel, "callback returned an error").FieldAdd("connID", connID).FieldAdd("error", err).Log()
		}
		if c, ok := w.byID[connID]; ok {
			c.Close()
		}
	}
}
