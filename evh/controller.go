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

// Package evh is the reactor's public entry point: Controller wires a
// configuration, a fixed set of worker threads, and the five user
// callbacks together, and exposes the server/client onboarding and stats
// surface described for the housekeeper/stats/controller module.
package evh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/evh/connection"
	liberr "github.com/nabbar/evh/errors"
	"github.com/nabbar/evh/evherr"
	"github.com/nabbar/evh/listener"
	"github.com/nabbar/evh/logger"
	"github.com/nabbar/evh/stats"
	"github.com/nabbar/evh/stats/promexport"
	"github.com/nabbar/evh/tlsengine"
	evhcfg "github.com/nabbar/evh/config"
	"github.com/nabbar/evh/worker"
)

// Controller owns the fixed pool of worker threads and every listener or
// outbound dialer registered against it. Its callback setters and Start
// are only valid before Start is called; AddServer/AddClient are only
// valid after Start (before it they return a ConfigurationError);
// WaitForStats may be called at any time.
type Controller struct {
	cfg *evhcfg.Config
	log logger.Logger
	tls *tlsengine.Engine

	mu      sync.Mutex
	cb      worker.Callbacks
	workers []*worker.Worker
	listeners []*listener.Listener

	nextConnID atomic.Uint64
	started    atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// New builds a Controller from cfg, validating it first. log may be nil.
func New(cfg *evhcfg.Config, log logger.Logger) (*Controller, liberr.Error) {
	if cfg == nil {
		cfg = evhcfg.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var eng *tlsengine.Engine
	if cfg.TlsServerConfig != nil || cfg.TlsClientConfig != nil {
		srv, err := buildServerTLS(cfg.TlsServerConfig)
		if err != nil {
			return nil, err
		}
		cli, err := buildClientTLS(cfg.TlsClientConfig)
		if err != nil {
			return nil, err
		}
		eng = tlsengine.New(srv, cli)
	}

	return &Controller{cfg: cfg, log: log, tls: eng}, nil
}

func (c *Controller) checkMutable() liberr.Error {
	if c.started.Load() {
		return evherr.Newf(evherr.ConfigurationError, "controller already started: callbacks are immutable")
	}
	return nil
}

func (c *Controller) SetOnAccept(fn worker.OnAccept) liberr.Error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cb.OnAccept = fn
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetOnRead(fn worker.OnRead) liberr.Error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cb.OnRead = fn
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetOnClose(fn worker.OnClose) liberr.Error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cb.OnClose = fn
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetOnHousekeeper(fn worker.OnHousekeeper) liberr.Error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cb.OnHousekeeper = fn
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetOnPanic(fn worker.OnPanic) liberr.Error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cb.OnPanic = fn
	c.mu.Unlock()
	return nil
}

// Worker implements listener.Pool.
func (c *Controller) Worker(i int) *worker.Worker {
	if i < 0 || i >= len(c.workers) {
		return nil
	}
	return c.workers[i]
}

// Len implements listener.Pool.
func (c *Controller) Len() int { return len(c.workers) }

// Start builds cfg.EvhThreads worker threads, installs the idle-reaper
// default housekeeper when none was set and an idle timeout is
// configured, and launches every worker's Run loop under an errgroup that
// Stop joins. Run reports no error (a failed poller wait is logged and the
// loop continues), so no worker failure stops the Controller on its own.
func (c *Controller) Start(ctx context.Context) liberr.Error {
	if !c.started.CompareAndSwap(false, true) {
		return evherr.Newf(evherr.ConfigurationError, "controller already started")
	}

	c.mu.Lock()
	cb := c.cb
	if cb.OnHousekeeper == nil && c.cfg.EvhIdleTimeoutMillis > 0 {
		idleAfter := time.Duration(c.cfg.EvhIdleTimeoutMillis) * time.Millisecond
		cb.OnHousekeeper = func(w *worker.Worker) error {
			w.ReapIdle(time.Now(), idleAfter)
			return nil
		}
	}
	c.mu.Unlock()

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.eg, _ = errgroup.WithContext(c.ctx)

	for i := 0; i < c.cfg.EvhThreads; i++ {
		wc := worker.Config{
			Index:                i,
			SlabSize:             c.cfg.EvhReadSlabSize,
			SlabCount:            c.cfg.EvhReadSlabCount,
			Timeout:              time.Duration(c.cfg.EvhTimeout) * time.Millisecond,
			HousekeeperFrequency: time.Duration(c.cfg.EvhHouseKeeperFrequencyMillis) * time.Millisecond,
			StatsFrequency:       time.Duration(c.cfg.EvhStatsUpdateMillis) * time.Millisecond,
			MaxHandles:           c.cfg.MaxHandlesPerThread,
		}

		w, err := worker.New(wc, cb, c.log, c.tls)
		if err != nil {
			c.started.Store(false)
			return err
		}
		c.workers = append(c.workers, w)
	}

	for _, w := range c.workers {
		w := w
		c.eg.Go(func() error {
			w.Run()
			return nil
		})
	}

	return nil
}

// Stop requests cooperative shutdown on every worker and every listener,
// and blocks until all worker goroutines have returned.
func (c *Controller) Stop() liberr.Error {
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	lns := c.listeners
	c.mu.Unlock()
	for _, ln := range lns {
		ln.Stop()
	}

	for _, w := range c.workers {
		w.Stop()
	}
	for _, w := range c.workers {
		<-w.Stopped()
	}

	if c.eg != nil {
		if err := c.eg.Wait(); err != nil {
			return evherr.New(evherr.PollerError, err)
		}
	}
	return nil
}

// AddServer registers a listening address, either distributing accepted
// connections across the worker pool round-robin, or under
// SO_REUSEPORT with one socket per worker, per cfg.ReusePort. It returns
// the bound socket's actual address, useful when addr asked for an
// ephemeral port.
func (c *Controller) AddServer(addr string) (string, liberr.Error) {
	if !c.started.Load() {
		return "", evherr.Newf(evherr.ConfigurationError, "AddServer called before Start")
	}

	withTLS := c.tls != nil && c.tls.HasServer()
	ln := listener.New(addr, c, c.cfg.ReusePort, withTLS, c.log, &c.nextConnID)
	bound, err := ln.Start(c.ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.listeners = append(c.listeners, ln)
	c.mu.Unlock()
	return bound, nil
}

// AddClient dials addr and onboards the resulting connection onto the
// worker pool as an outbound client connection.
func (c *Controller) AddClient(addr string) (connection.ID, liberr.Error) {
	if !c.started.Load() {
		return 0, evherr.Newf(evherr.ConfigurationError, "AddClient called before Start")
	}

	withTLS := c.tls != nil && c.tls.HasClient()
	return listener.Dial(c.ctx, addr, c, withTLS, &c.nextConnID)
}

// WaitForStats aggregates the latest published snapshot from every
// worker. It does not block on a worker's tick: it reads whatever each
// worker's stats slot last published.
func (c *Controller) WaitForStats() stats.Snapshot {
	var total stats.Snapshot
	for _, w := range c.workers {
		total = total.Add(w.StatsSlot().Load())
	}
	return total
}

// PrometheusCollector projects WaitForStats onto a prometheus.Collector
// under namespace, for an embedding application to register against its
// own prometheus.Registry.
func (c *Controller) PrometheusCollector(namespace string) *promexport.Collector {
	return promexport.New(namespace, c.WaitForStats)
}
