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

package evh

import (
	"github.com/nabbar/evh/certificates"
	"github.com/nabbar/evh/config"
	"github.com/nabbar/evh/evherr"
	liberr "github.com/nabbar/evh/errors"
)

// buildServerTLS turns a config.TlsServerConfig into a certificates.TLSConfig,
// the way a listener's accept path expects to find one already resolved.
func buildServerTLS(c *config.TlsServerConfig) (certificates.TLSConfig, liberr.Error) {
	if c == nil {
		return nil, nil
	}

	t := certificates.New()

	if c.CertFile != "" || c.KeyFile != "" {
		if err := t.AddCertificatePairFile(c.KeyFile, c.CertFile); err != nil {
			return nil, evherr.New(evherr.TlsError, err)
		}
	}

	for _, f := range c.ClientCAFiles {
		if err := t.AddClientCAFile(f); err != nil {
			return nil, evherr.New(evherr.TlsError, err)
		}
	}

	t.SetClientAuth(c.ClientAuth)
	return t, nil
}

// buildClientTLS turns a config.TlsClientConfig into a certificates.TLSConfig
// used by outbound client connections.
func buildClientTLS(c *config.TlsClientConfig) (certificates.TLSConfig, liberr.Error) {
	if c == nil {
		return nil, nil
	}

	t := certificates.New()

	for _, f := range c.RootCAFiles {
		if err := t.AddRootCAFile(f); err != nil {
			return nil, evherr.New(evherr.TlsError, err)
		}
	}

	return t, nil
}
