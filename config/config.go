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

// Package config defines and loads the options a Controller is started with:
// thread count, slab sizing, poll timeouts, housekeeper/stats intervals, and
// the optional server/client TLS material.
package config

import (
	tlsaut "github.com/nabbar/evh/certificates/auth"
)

// TlsServerSNI is one per-hostname certificate pair entry of
// TlsServerConfig.SNI. It is decoded and kept, but the controller's TLS
// setup does not read it: every client is served the default pair.
type TlsServerSNI struct {
	CertFile string `mapstructure:"certFile" json:"certFile" yaml:"certFile" toml:"certFile"`
	KeyFile  string `mapstructure:"keyFile" json:"keyFile" yaml:"keyFile" toml:"keyFile"`
}

// TlsServerConfig is the server-side TLS material: the default certificate
// pair, the client-certificate pool used when requesting mutual TLS, and an
// SNI map that is decoded but not applied (see TlsServerSNI).
type TlsServerConfig struct {
	CertFile      string                  `mapstructure:"certFile" json:"certFile" yaml:"certFile" toml:"certFile"`
	KeyFile       string                  `mapstructure:"keyFile" json:"keyFile" yaml:"keyFile" toml:"keyFile"`
	SNI           map[string]TlsServerSNI `mapstructure:"sni" json:"sni" yaml:"sni" toml:"sni"`
	ClientCAFiles []string                `mapstructure:"clientCAFiles" json:"clientCAFiles" yaml:"clientCAFiles" toml:"clientCAFiles"`
	ClientAuth    tlsaut.ClientAuth       `mapstructure:"clientAuth" json:"clientAuth" yaml:"clientAuth" toml:"clientAuth"`
}

// TlsClientConfig is the client-side TLS material used by outbound connections.
// Only RootCAFiles is applied; ServerName is decoded but not read, and
// outbound handshakes are started with an empty server name.
type TlsClientConfig struct {
	RootCAFiles []string `mapstructure:"rootCAFiles" json:"rootCAFiles" yaml:"rootCAFiles" toml:"rootCAFiles"`
	ServerName  string   `mapstructure:"serverName" json:"serverName" yaml:"serverName" toml:"serverName"`
}

// Config is the full set of options a Controller is started with.
type Config struct {
	EvhThreads                    int              `mapstructure:"evhThreads" json:"evhThreads" yaml:"evhThreads" toml:"evhThreads"`
	EvhReadSlabSize                int              `mapstructure:"evhReadSlabSize" json:"evhReadSlabSize" yaml:"evhReadSlabSize" toml:"evhReadSlabSize"`
	EvhReadSlabCount                int              `mapstructure:"evhReadSlabCount" json:"evhReadSlabCount" yaml:"evhReadSlabCount" toml:"evhReadSlabCount"`
	EvhTimeout                     int              `mapstructure:"evhTimeout" json:"evhTimeout" yaml:"evhTimeout" toml:"evhTimeout"`
	EvhHouseKeeperFrequencyMillis  int              `mapstructure:"evhHouseKeeperFrequencyMillis" json:"evhHouseKeeperFrequencyMillis" yaml:"evhHouseKeeperFrequencyMillis" toml:"evhHouseKeeperFrequencyMillis"`
	EvhStatsUpdateMillis           int              `mapstructure:"evhStatsUpdateMillis" json:"evhStatsUpdateMillis" yaml:"evhStatsUpdateMillis" toml:"evhStatsUpdateMillis"`
	Debug                          bool             `mapstructure:"debug" json:"debug" yaml:"debug" toml:"debug"`
	TlsServerConfig                *TlsServerConfig `mapstructure:"tlsServerConfig" json:"tlsServerConfig" yaml:"tlsServerConfig" toml:"tlsServerConfig"`
	TlsClientConfig                *TlsClientConfig `mapstructure:"tlsClientConfig" json:"tlsClientConfig" yaml:"tlsClientConfig" toml:"tlsClientConfig"`
	ReusePort                      bool             `mapstructure:"reusePort" json:"reusePort" yaml:"reusePort" toml:"reusePort"`
	MaxHandlesPerThread             int              `mapstructure:"maxHandlesPerThread" json:"maxHandlesPerThread" yaml:"maxHandlesPerThread" toml:"maxHandlesPerThread"`
	EvhIdleTimeoutMillis           int              `mapstructure:"evhIdleTimeoutMillis" json:"evhIdleTimeoutMillis" yaml:"evhIdleTimeoutMillis" toml:"evhIdleTimeoutMillis"`
}

// Default returns the option set from spec.md §6's default column.
func Default() *Config {
	return &Config{
		EvhThreads:                    4,
		EvhReadSlabSize:               512,
		EvhReadSlabCount:              1000,
		EvhTimeout:                    1000,
		EvhHouseKeeperFrequencyMillis: 10000,
		EvhStatsUpdateMillis:          5000,
		MaxHandlesPerThread:           0, // 0 == unlimited
		EvhIdleTimeoutMillis:          0, // 0 == disabled
	}
}
