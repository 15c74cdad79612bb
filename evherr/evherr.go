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

// Package evherr defines the error taxonomy EVH's components return: a small
// set of CodeError kinds built on top of the shared errors package, scoped to
// exactly the failure categories the reactor distinguishes.
package evherr

import (
	liberr "github.com/nabbar/evh/errors"
)

const (
	minCode = liberr.MinPkgEvh + iota

	// ConfigurationError reports an invalid or missing configuration value.
	ConfigurationError
	// PollerError reports a failure from the underlying epoll/kqueue adapter.
	PollerError
	// SlabExhausted reports that the slab store has no free slab left to allocate.
	SlabExhausted
	// IoError reports a read/write/accept failure on a connection or listener.
	IoError
	// TlsError reports a TLS handshake, certificate load, or reload failure.
	TlsError
	// CallbackError reports a user callback returning a non-nil error.
	CallbackError
	// CallbackPanic reports a user callback panicking.
	CallbackPanic
)

func init() {
	liberr.RegisterIdFctMessage(minCode, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ConfigurationError:
		return "invalid evh configuration"
	case PollerError:
		return "poller adapter error"
	case SlabExhausted:
		return "slab store exhausted"
	case IoError:
		return "connection io error"
	case TlsError:
		return "tls engine error"
	case CallbackError:
		return "callback returned an error"
	case CallbackPanic:
		return "callback panicked"
	default:
		return liberr.NullMessage
	}
}

// New builds an evherr of the given kind, wrapping the optional parent errors.
func New(code liberr.CodeError, parent ...error) liberr.Error {
	return code.Error(parent...)
}

// Newf builds an evherr of the given kind with the message formatted from
// pattern and args, overriding the kind's default registered message.
func Newf(code liberr.CodeError, pattern string, args ...any) liberr.Error {
	return liberr.Newf(code.Uint16(), pattern, args...)
}

// Is reports whether err is (or wraps) an evherr of the given kind.
func Is(err error, code liberr.CodeError) bool {
	e := liberr.Make(err)
	if e == nil {
		return false
	}
	return e.HasCode(code)
}
