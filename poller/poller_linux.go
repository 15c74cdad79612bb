//go:build linux

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

package poller

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/evh/evherr"
	liberr "github.com/nabbar/evh/errors"
)

type epollPoll struct {
	epfd   int
	wakefd int

	mu   sync.Mutex
	want map[int]uint32
}

// New builds the platform poller: epoll with EPOLLET on Linux.
func New() (Poll, liberr.Error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, evherr.New(evherr.PollerError, err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, evherr.New(evherr.PollerError, err)
	}

	p := &epollPoll{epfd: epfd, wakefd: wakefd, want: make(map[int]uint32)}

	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, evherr.New(evherr.PollerError, err)
	}

	return p, nil
}

func flags(readable, writable bool) uint32 {
	var f uint32 = unix.EPOLLET
	if readable {
		f |= unix.EPOLLIN
	}
	if writable {
		f |= unix.EPOLLOUT
	}
	return f
}

func (p *epollPoll) Register(handle int, readable, writable bool) error {
	f := flags(readable, writable)
	ev := unix.EpollEvent{Events: f, Fd: int32(handle)}

	p.mu.Lock()
	p.want[handle] = f
	p.mu.Unlock()

	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, handle, &ev)
}

func (p *epollPoll) Modify(handle int, readable, writable bool) error {
	f := flags(readable, writable)
	ev := unix.EpollEvent{Events: f, Fd: int32(handle)}

	p.mu.Lock()
	p.want[handle] = f
	p.mu.Unlock()

	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, handle, &ev)
}

func (p *epollPoll) Deregister(handle int) error {
	p.mu.Lock()
	delete(p.want, handle)
	p.mu.Unlock()

	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, handle, nil)
}

func (p *epollPoll) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	raw := make([]unix.EpollEvent, 256)
	ms := -1
	if timeout > 0 {
		ms = int(timeout / time.Millisecond)
	}

	for {
		n, err := unix.EpollWait(p.epfd, raw, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return dst, err
		}

		for i := 0; i < n; i++ {
			fd := int(raw[i].Fd)
			if fd == p.wakefd {
				p.drainWake()
				dst = append(dst, Event{Woken: true})
				continue
			}

			e := Event{Handle: fd}
			if raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP) != 0 {
				e.Readable = true
			}
			if raw[i].Events&unix.EPOLLOUT != 0 {
				e.Writable = true
			}
			if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				e.Error = true
			}
			dst = append(dst, e)
		}
		return dst, nil
	}
}

func (p *epollPoll) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakefd, buf[:])
}

func (p *epollPoll) Trigger() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakefd, buf[:])
	return err
}

func (p *epollPoll) Close() error {
	_ = unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}
