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

package listener

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/nabbar/evh/connection"
	liberr "github.com/nabbar/evh/errors"
	"github.com/nabbar/evh/evherr"
	"github.com/nabbar/evh/worker"
)

// Dial opens an outbound TCP connection to addr and hands it to one of
// pool's workers the same way an accepted connection is onboarded, so a
// client-initiated socket is driven by the exact same read/write/close
// machinery as a server-accepted one.
func Dial(ctx context.Context, addr string, pool Pool, withTLS bool, nextID *atomic.Uint64) (connection.ID, liberr.Error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, evherr.New(evherr.IoError, err)
	}

	fd, ferr := rawFd(c)
	if ferr != nil {
		_ = c.Close()
		return 0, evherr.New(evherr.IoError, ferr)
	}

	n := pool.Len()
	if n == 0 {
		return 0, evherr.New(evherr.ConfigurationError, nil)
	}

	w := pool.Worker(0)
	for i := 0; i < n; i++ {
		cand := pool.Worker(i)
		if cand == nil {
			continue
		}
		if max := cand.MaxHandles(); max <= 0 || int(cand.HandleCount()) < max {
			w = cand
			break
		}
	}

	connID := connection.ID(nextID.Add(1))
	w.Cmd() <- worker.Command{
		Kind:   worker.CmdAdopt,
		Handle: fd,
		Role:   connection.RoleOutboundClient,
		ConnID: connID,
		TLS:    withTLS,
	}
	w.Wake()

	return connID, nil
}
