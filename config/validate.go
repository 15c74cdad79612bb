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
	liberr "github.com/nabbar/evh/errors"
	"github.com/nabbar/evh/evherr"
)

const minSlabSize = 25

// Validate checks every invariant spec.md §6 names, returning an evherr
// ConfigurationError carrying every violation found as a parent error.
func (c *Config) Validate() liberr.Error {
	err := evherr.New(evherr.ConfigurationError)

	if c == nil {
		err.Add(evherr.Newf(evherr.ConfigurationError, "config is nil"))
		return err
	}

	if c.EvhThreads <= 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhThreads must be greater than 0, got %d", c.EvhThreads))
	}

	if c.EvhReadSlabCount <= 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhReadSlabCount must be greater than 0, got %d", c.EvhReadSlabCount))
	}

	if c.EvhReadSlabSize < minSlabSize {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhReadSlabSize must be at least %d bytes, got %d", minSlabSize, c.EvhReadSlabSize))
	}

	if c.EvhTimeout <= 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhTimeout must be greater than 0, got %d", c.EvhTimeout))
	}

	if c.EvhHouseKeeperFrequencyMillis <= 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhHouseKeeperFrequencyMillis must be greater than 0, got %d", c.EvhHouseKeeperFrequencyMillis))
	}

	if c.EvhStatsUpdateMillis <= 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhStatsUpdateMillis must be greater than 0, got %d", c.EvhStatsUpdateMillis))
	}

	if c.MaxHandlesPerThread < 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "maxHandlesPerThread cannot be negative, got %d", c.MaxHandlesPerThread))
	}

	if c.EvhIdleTimeoutMillis < 0 {
		err.Add(evherr.Newf(evherr.ConfigurationError, "evhIdleTimeoutMillis cannot be negative, got %d", c.EvhIdleTimeoutMillis))
	}

	if err.HasParent() {
		return err
	}

	return nil
}
