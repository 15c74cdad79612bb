//go:build darwin || freebsd || netbsd || openbsd || dragonfly

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
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/evh/evherr"
	liberr "github.com/nabbar/evh/errors"
)

const wakeIdent = 1

type kqueuePoll struct {
	kq int

	mu   sync.Mutex
	want map[int]struct{ r, w bool }
}

// New builds the platform poller: kqueue with EV_CLEAR on BSD/Darwin.
func New() (Poll, liberr.Error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, evherr.New(evherr.PollerError, err)
	}

	p := &kqueuePoll{kq: kq, want: make(map[int]struct{ r, w bool })}

	wake := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	if _, err := unix.Kevent(kq, wake, nil, nil); err != nil {
		_ = unix.Close(kq)
		return nil, evherr.New(evherr.PollerError, err)
	}

	return p, nil
}

func (p *kqueuePoll) changes(handle int, readable, writable bool, add bool) []unix.Kevent_t {
	var op uint16 = unix.EV_ADD | unix.EV_CLEAR
	if !add {
		op = unix.EV_DELETE
	}

	var changes []unix.Kevent_t
	if add {
		if readable {
			changes = append(changes, unix.Kevent_t{Ident: uint64(handle), Filter: unix.EVFILT_READ, Flags: op})
		} else {
			changes = append(changes, unix.Kevent_t{Ident: uint64(handle), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
		}
		if writable {
			changes = append(changes, unix.Kevent_t{Ident: uint64(handle), Filter: unix.EVFILT_WRITE, Flags: op})
		} else {
			changes = append(changes, unix.Kevent_t{Ident: uint64(handle), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
		}
	} else {
		changes = append(changes,
			unix.Kevent_t{Ident: uint64(handle), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
			unix.Kevent_t{Ident: uint64(handle), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
		)
	}
	return changes
}

func (p *kqueuePoll) apply(changes []unix.Kevent_t) error {
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoll) Register(handle int, readable, writable bool) error {
	p.mu.Lock()
	p.want[handle] = struct{ r, w bool }{readable, writable}
	p.mu.Unlock()
	return p.apply(p.changes(handle, readable, writable, true))
}

func (p *kqueuePoll) Modify(handle int, readable, writable bool) error {
	p.mu.Lock()
	p.want[handle] = struct{ r, w bool }{readable, writable}
	p.mu.Unlock()
	return p.apply(p.changes(handle, readable, writable, true))
}

func (p *kqueuePoll) Deregister(handle int) error {
	p.mu.Lock()
	delete(p.want, handle)
	p.mu.Unlock()
	// EV_DELETE on a filter that was never armed is harmless to ignore.
	_ = p.apply(p.changes(handle, false, false, false))
	return nil
}

func (p *kqueuePoll) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	raw := make([]unix.Kevent_t, 256)

	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	for {
		n, err := unix.Kevent(p.kq, nil, raw, ts)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return dst, err
		}

		for i := 0; i < n; i++ {
			k := raw[i]
			if k.Filter == unix.EVFILT_USER && k.Ident == wakeIdent {
				dst = append(dst, Event{Woken: true})
				continue
			}

			e := Event{Handle: int(k.Ident)}
			switch k.Filter {
			case unix.EVFILT_READ:
				e.Readable = true
			case unix.EVFILT_WRITE:
				e.Writable = true
			}
			if k.Flags&unix.EV_EOF != 0 || k.Flags&unix.EV_ERROR != 0 {
				e.Error = true
			}
			dst = append(dst, e)
		}
		return dst, nil
	}
}

func (p *kqueuePoll) Trigger() error {
	trig := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}}
	_, err := unix.Kevent(p.kq, trig, nil, nil)
	return err
}

func (p *kqueuePoll) Close() error {
	return unix.Close(p.kq)
}
