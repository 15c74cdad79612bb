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
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

var errUnsupportedConn = errors.New("listener: connection type does not expose a raw file descriptor")

// rawFd detaches c's underlying file descriptor from Go's runtime netpoller
// and returns it set non-blocking, ready for a worker's own poller to take
// over. The duplicate net.Conn wrapper is closed immediately after: only
// the fd survives.
func rawFd(c net.Conn) (int, error) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return 0, errUnsupportedConn
	}

	f, err := tc.File()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	_ = tc.Close()

	fd := int(f.Fd())
	dup, err := unix.Dup(fd)
	if err != nil {
		return 0, err
	}
	if err = unix.SetNonblock(dup, true); err != nil {
		_ = unix.Close(dup)
		return 0, err
	}
	return dup, nil
}
