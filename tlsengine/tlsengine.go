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

// Package tlsengine adapts the certificates package's TLSConfig into the
// non-blocking handshake surface a worker's edge-triggered read/write loop
// needs: a Session wraps a single connection's *tls.Conn and tracks whether
// the handshake has completed without ever blocking the caller.
package tlsengine

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/evh/certificates"
	"github.com/nabbar/evh/evherr"
	liberr "github.com/nabbar/evh/errors"
)

// Engine builds Sessions for accepted or dialed connections from one
// server-side and one client-side certificates.TLSConfig.
type Engine struct {
	server certificates.TLSConfig
	client certificates.TLSConfig
}

func New(server, client certificates.TLSConfig) *Engine {
	return &Engine{server: server, client: client}
}

func (e *Engine) HasServer() bool {
	return e.server != nil
}

func (e *Engine) HasClient() bool {
	return e.client != nil
}

// Server wraps conn as the server side of a TLS handshake.
func (e *Engine) Server(conn net.Conn) *Session {
	cfg := e.server.TlsConfig("")
	return &Session{conn: tls.Server(conn, cfg)}
}

// Client wraps conn as the client side of a TLS handshake against
// serverName (used for SNI and certificate verification).
func (e *Engine) Client(conn net.Conn, serverName string) *Session {
	cfg := e.client.TlsConfig(serverName)
	return &Session{conn: tls.Client(conn, cfg)}
}

// Session tracks one connection's TLS handshake and ciphertext<->plaintext
// conversion. It never blocks: Handshake is driven opportunistically from
// the worker's edge-triggered read/write steps, retrying on EAGAIN-style
// temporary errors until complete.
type Session struct {
	conn      *tls.Conn
	completed bool
}

// Conn returns the net.Conn the worker should actually read/write: the TLS
// record layer in front of the raw socket.
func (s *Session) Conn() net.Conn {
	return s.conn
}

// Handshake drives one non-blocking attempt at completing the handshake.
// It returns (true, nil) once complete, (false, nil) when it would block
// and should be retried on the next readiness notification, and a non-nil
// evherr.TlsError otherwise.
func (s *Session) Handshake(ctx context.Context) (bool, liberr.Error) {
	if s.completed {
		return true, nil
	}

	if err := s.conn.HandshakeContext(ctx); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Temporary() { //nolint:staticcheck
			return false, nil
		}
		return false, evherr.New(evherr.TlsError, err)
	}

	s.completed = true
	return true, nil
}

func (s *Session) HandshakeComplete() bool {
	return s.completed
}

func (s *Session) ConnectionState() tls.ConnectionState {
	return s.conn.ConnectionState()
}
