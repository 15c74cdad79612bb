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

package stats_test

import (
	"github.com/nabbar/evh/stats"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Counters", func() {
	It("accumulates and resets independently of the live gauges", func() {
		var c stats.Counters
		c.AddAccept()
		c.AddRead(5)
		c.AddWrite(3)
		c.AddError()
		c.AddClose()

		snap := c.Snapshot(2, 7)
		Expect(snap.Accepts).To(Equal(uint64(1)))
		Expect(snap.BytesIn).To(Equal(uint64(5)))
		Expect(snap.BytesOut).To(Equal(uint64(3)))
		Expect(snap.Errors).To(Equal(uint64(1)))
		Expect(snap.Closes).To(Equal(uint64(1)))
		Expect(snap.OpenConnections).To(Equal(int64(2)))
		Expect(snap.SlabsInUse).To(Equal(int64(7)))

		c.Reset()
		snap = c.Snapshot(2, 7)
		Expect(snap.Accepts).To(Equal(uint64(0)))
	})
})

var _ = Describe("Snapshot", func() {
	It("sums element-wise across workers", func() {
		a := stats.Snapshot{Accepts: 1, BytesIn: 10, OpenConnections: 2}
		b := stats.Snapshot{Accepts: 2, BytesIn: 20, OpenConnections: 3}

		sum := a.Add(b)
		Expect(sum.Accepts).To(Equal(uint64(3)))
		Expect(sum.BytesIn).To(Equal(uint64(30)))
		Expect(sum.OpenConnections).To(Equal(int64(5)))
	})
})

var _ = Describe("Slot", func() {
	It("returns the zero snapshot before any publication", func() {
		var s stats.Slot
		Expect(s.Load()).To(Equal(stats.Snapshot{}))
	})

	It("returns the most recently published snapshot", func() {
		var s stats.Slot
		s.Publish(stats.Snapshot{Accepts: 9})
		Expect(s.Load().Accepts).To(Equal(uint64(9)))
	})
})
