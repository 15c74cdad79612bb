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

package config

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	libmap "github.com/go-viper/mapstructure/v2"
	liberr "github.com/nabbar/evh/errors"
	"github.com/nabbar/evh/evherr"
	"github.com/spf13/viper"
)

// FromFile loads a Config from a YAML/JSON/TOML file, inferring the codec
// from the file extension, and validates it before returning.
func FromFile(path string) (*Config, liberr.Error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "yaml"
	}

	v := viper.New()
	v.SetConfigType(ext)
	v.SetConfigFile(path)

	if e := v.ReadInConfig(); e != nil {
		return nil, evherr.New(evherr.ConfigurationError, e)
	}

	return decode(v)
}

// FromReader loads a Config from an in-memory stream, using typ ("yaml",
// "json", "toml", ...) to select the decoder, and validates it before
// returning.
func FromReader(typ string, r io.Reader) (*Config, liberr.Error) {
	buf := new(bytes.Buffer)
	if _, e := buf.ReadFrom(r); e != nil {
		return nil, evherr.New(evherr.ConfigurationError, e)
	}

	v := viper.New()
	v.SetConfigType(typ)

	if e := v.ReadConfig(buf); e != nil {
		return nil, evherr.New(evherr.ConfigurationError, e)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, liberr.Error) {
	cfg := Default()

	if e := v.Unmarshal(cfg, func(c *libmap.DecoderConfig) {
		c.ErrorUnused = true
	}); e != nil {
		return nil, evherr.New(evherr.ConfigurationError, e)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
