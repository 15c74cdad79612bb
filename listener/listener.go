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

// Package listener onboards accepted (or dialed) sockets onto worker
// threads: either one OS listener per worker under SO_REUSEPORT, letting
// the kernel balance accepts, or a single OS listener round-robining
// accepted file descriptors across workers via their adopt command
// channel.
package listener

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nabbar/evh/connection"
	liberr "github.com/nabbar/evh/errors"
	"github.com/nabbar/evh/evherr"
	"github.com/nabbar/evh/logger"
	loglvl "github.com/nabbar/evh/logger/level"
	"github.com/nabbar/evh/worker"
)

// Pool is the subset of a Controller's worker set a Listener distributes
// connections across.
type Pool interface {
	Worker(i int) *worker.Worker
	Len() int
}

// Listener accepts connections on one network address and hands them to
// the worker pool, either via per-worker SO_REUSEPORT sockets or via
// round-robin distribution over a single socket.
type Listener struct {
	addr      string
	pool      Pool
	reusePort bool
	withTLS   bool
	log       logger.Logger
	nextID    *atomic.Uint64

	mu   sync.Mutex
	lns  []net.Listener
	next atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Listener for addr against pool. nextID is the
// process-wide connection-id counter shared with the rest of the
// Controller so every connection, on every worker, gets a unique id.
func New(addr string, pool Pool, reusePort, withTLS bool, log logger.Logger, nextID *atomic.Uint64) *Listener {
	return &Listener{
		addr:      addr,
		pool:      pool,
		reusePort: reusePort,
		withTLS:   withTLS,
		log:       log,
		nextID:    nextID,
	}
}

// Start binds the listening socket(s) and launches the accept loop(s). It
// returns the first bound socket's actual address, useful when addr asked
// for an ephemeral port (":0").
func (l *Listener) Start(ctx context.Context) (string, liberr.Error) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	if l.reusePort {
		return l.startReusePort(ctx)
	}
	return l.startShared(ctx)
}

// Stop closes every bound socket and waits for the accept loops to return.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Lock()
	for _, ln := range l.lns {
		_ = ln.Close()
	}
	l.lns = nil
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Listener) startShared(ctx context.Context) (string, liberr.Error) {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return "", evherr.New(evherr.IoError, err)
	}

	l.mu.Lock()
	l.lns = append(l.lns, ln)
	l.mu.Unlock()

	l.wg.Add(1)
	go l.acceptLoop(ctx, ln, -1)
	return ln.Addr().String(), nil
}

// startReusePort binds one SO_REUSEPORT socket per worker so the kernel
// spreads inbound connections across threads without any round-robin
// bookkeeping on our side.
func (l *Listener) startReusePort(ctx context.Context) (string, liberr.Error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			return sockErr
		},
	}

	var addr string
	for i := 0; i < l.pool.Len(); i++ {
		ln, err := lc.Listen(ctx, "tcp", l.addr)
		if err != nil {
			l.Stop()
			return "", evherr.New(evherr.IoError, err)
		}

		if i == 0 {
			addr = ln.Addr().String()
			l.addr = addr // subsequent sockets bind the same resolved port
		}

		l.mu.Lock()
		l.lns = append(l.lns, ln)
		l.mu.Unlock()

		l.wg.Add(1)
		go l.acceptLoop(ctx, ln, i)
	}

	return addr, nil
}

// acceptLoop runs one listening socket's accept cycle. pinnedWorker is -1
// for the shared (round-robin) listener, or the worker index a
// SO_REUSEPORT socket feeds exclusively.
func (l *Listener) acceptLoop(ctx context.Context, ln net.Listener, pinnedWorker int) {
	defer l.wg.Done()

	for {
		c, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if l.log != nil {
				l.log.Entry(loglvl.ErrorLevel, "accept failed").FieldAdd("addr", l.addr).FieldAdd("error", err).Log()
			}
			return
		}

		fd, ferr := rawFd(c)
		if ferr != nil {
			_ = c.Close()
			continue
		}

		w := l.pickWorker(pinnedWorker)
		if w == nil {
			_ = c.Close()
			continue
		}

		connID := connection.ID(l.nextID.Add(1))
		w.Cmd() <- worker.Command{
			Kind:   worker.CmdAdopt,
			Handle: fd,
			Role:   connection.RoleServerAccepted,
			ConnID: connID,
			TLS:    l.withTLS,
		}
		w.Wake()
	}
}

// pickWorker returns the pinned worker for a SO_REUSEPORT socket, or the
// next worker under the shared-socket's MaxHandles-aware round robin.
func (l *Listener) pickWorker(pinnedWorker int) *worker.Worker {
	if pinnedWorker >= 0 {
		return l.pool.Worker(pinnedWorker)
	}

	n := l.pool.Len()
	if n == 0 {
		return nil
	}

	start := int(l.next.Add(1)-1) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		w := l.pool.Worker(idx)
		if w == nil {
			continue
		}
		if max := w.MaxHandles(); max <= 0 || int(w.HandleCount()) < max {
			return w
		}
	}

	// every worker is at its soft cap: fall back to plain round robin
	// rather than dropping the connection.
	return l.pool.Worker(start)
}
