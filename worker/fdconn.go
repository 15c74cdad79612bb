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
	"errors"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// fdConn is the thinnest possible net.Conn over a raw, already
// non-blocking file descriptor, used only to let tlsengine's *tls.Conn
// frame its records atop the exact fd our poller owns -- without handing
// the fd to Go's runtime netpoller (which net.FileConn would, via an
// internal dup, registering it a second time and defeating the point of
// driving our own epoll/kqueue loop).
type fdConn struct {
	fd int
}

func (c fdConn) Read(b []byte) (int, error) {
	n, err := unix.Read(c.fd, b)
	if err != nil {
		return 0, mapSyscallErr(err)
	}
	if n == 0 {
		return 0, net.ErrClosed
	}
	return n, nil
}

func (c fdConn) Write(b []byte) (int, error) {
	n, err := unix.Write(c.fd, b)
	if err != nil {
		return n, mapSyscallErr(err)
	}
	return n, nil
}

func (c fdConn) Close() error                       { return unix.Close(c.fd) }
func (c fdConn) LocalAddr() net.Addr                { return fdAddr{} }
func (c fdConn) RemoteAddr() net.Addr               { return fdAddr{} }
func (c fdConn) SetDeadline(time.Time) error         { return nil }
func (c fdConn) SetReadDeadline(time.Time) error     { return nil }
func (c fdConn) SetWriteDeadline(time.Time) error    { return nil }

type fdAddr struct{}

func (fdAddr) Network() string { return "tcp" }
func (fdAddr) String() string  { return "fd" }

// isAgain reports whether err represents EAGAIN/EWOULDBLOCK/EINTR,
// unwrapping net.OpError and *tls wrapping the way the standard library
// reports non-blocking syscall failures.
func isAgain(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EINTR)
}

func mapSyscallErr(err error) error {
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EINTR) {
		return err
	}
	return &net.OpError{Op: "fdconn", Err: err}
}
