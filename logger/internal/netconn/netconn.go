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

// Package netconn is a minimal reconnecting net.Conn client used to reach a
// remote syslog endpoint over TCP or UDP.
package netconn

import (
	"context"
	"net"
	"sync"

	"github.com/nabbar/evh/logger/internal/netproto"
)

// Client is a thread-safe, reconnecting wrapper around net.Conn.
type Client interface {
	Connect(ctx context.Context) error
	Write(p []byte) (int, error)
	Close() error
}

type client struct {
	mu  sync.Mutex
	ptc netproto.NetworkProtocol
	adr string
	cnx net.Conn
}

// New returns a Client targeting the given protocol and address. Connect must
// be called before the first Write.
func New(ptc netproto.NetworkProtocol, adr string) Client {
	return &client{ptc: ptc, adr: adr}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cnx != nil {
		_ = c.cnx.Close()
		c.cnx = nil
	}

	d := net.Dialer{}
	cnx, e := d.DialContext(ctx, c.ptc.String(), c.adr)
	if e != nil {
		return e
	}

	c.cnx = cnx
	return nil
}

func (c *client) Write(p []byte) (int, error) {
	c.mu.Lock()
	cnx := c.cnx
	c.mu.Unlock()

	if cnx == nil {
		return 0, net.ErrClosed
	}

	return cnx.Write(p)
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cnx == nil {
		return nil
	}

	e := c.cnx.Close()
	c.cnx = nil
	return e
}
