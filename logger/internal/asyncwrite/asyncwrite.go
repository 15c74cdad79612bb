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

// Package asyncwrite serializes concurrent writes onto a single background
// goroutine so that file and syslog hooks never call their underlying
// writer function from more than one goroutine at a time.
package asyncwrite

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosedResources is returned by Write once the aggregator has been closed.
var ErrClosedResources = errors.New("closed resources")

// ErrInvalidWriter is returned by New when Config.FctWriter is nil.
var ErrInvalidWriter = errors.New("invalid writer")

// Config describes the behavior of an Aggregator.
type Config struct {
	// BufWriter is the capacity of the internal write channel.
	BufWriter int

	// FctWriter receives every buffered chunk, in order, from a single goroutine.
	FctWriter func(p []byte) (int, error)

	// SyncTimer, when non-zero, triggers SyncFct on a fixed interval.
	SyncTimer time.Duration

	// SyncFct is called from the writer goroutine every SyncTimer tick.
	SyncFct func(ctx context.Context)
}

// Aggregator is a started, thread-safe io.Writer backed by a single consumer goroutine.
type Aggregator interface {
	// Start launches the consumer goroutine. Calling Start twice is a no-op.
	Start(ctx context.Context) error

	// Close stops the consumer goroutine and releases its resources.
	Close() error

	// Write enqueues p for the consumer goroutine. It never blocks the caller
	// on FctWriter itself, only on the channel's buffer.
	Write(p []byte) (int, error)

	// SetLoggerError installs a callback used to report FctWriter errors.
	SetLoggerError(fct func(msg string, err ...error))
}

type chunk struct {
	p []byte
	n chan struct{}
}

type agg struct {
	mu      sync.Mutex
	cfg     Config
	ch      chan chunk
	done    chan struct{}
	cancel  context.CancelFunc
	started bool
	onError func(msg string, err ...error)
}

// New builds an Aggregator from cfg. The returned instance is stopped; call
// Start to begin consuming writes.
func New(ctx context.Context, cfg Config) (Aggregator, error) {
	if cfg.FctWriter == nil {
		return nil, ErrInvalidWriter
	}

	if cfg.BufWriter <= 0 {
		cfg.BufWriter = 1
	}

	return &agg{
		cfg:     cfg,
		onError: func(msg string, err ...error) {},
	}, nil
}

func (a *agg) SetLoggerError(fct func(msg string, err ...error)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if fct != nil {
		a.onError = fct
	}
}

func (a *agg) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithCancel(ctx)
	a.ch = make(chan chunk, a.cfg.BufWriter)
	a.done = make(chan struct{})
	a.cancel = cancel
	a.started = true

	go a.run(cctx)

	return nil
}

func (a *agg) run(ctx context.Context) {
	defer close(a.done)

	var tick <-chan time.Time
	if a.cfg.SyncTimer > 0 {
		t := time.NewTicker(a.cfg.SyncTimer)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case c, ok := <-a.ch:
			if !ok {
				return
			}
			a.write(c)
		case <-tick:
			if a.cfg.SyncFct != nil {
				a.cfg.SyncFct(ctx)
			}
		}
	}
}

func (a *agg) drain() {
	for {
		select {
		case c, ok := <-a.ch:
			if !ok {
				return
			}
			a.write(c)
		default:
			return
		}
	}
}

func (a *agg) write(c chunk) {
	if _, e := a.cfg.FctWriter(c.p); e != nil {
		a.mu.Lock()
		fn := a.onError
		a.mu.Unlock()
		fn("asyncwrite: write error", e)
	}

	if c.n != nil {
		close(c.n)
	}
}

func (a *agg) Write(p []byte) (int, error) {
	a.mu.Lock()
	started := a.started
	ch := a.ch
	a.mu.Unlock()

	if !started {
		return 0, ErrClosedResources
	}

	cp := make([]byte, len(p))
	copy(cp, p)

	select {
	case ch <- chunk{p: cp}:
		return len(p), nil
	case <-a.done:
		return 0, ErrClosedResources
	}
}

func (a *agg) Close() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = false
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	<-a.done

	return nil
}
