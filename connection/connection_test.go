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

package connection_test

import (
	"github.com/nabbar/evh/connection"
	"github.com/nabbar/evh/slab"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Conn", func() {
	It("starts with no data and reports HasData once a slab is appended", func() {
		st, _ := slab.New(16, 4)
		c := connection.New(1, 5, connection.RoleServerAccepted, 0, st)
		Expect(c.HasData()).To(BeFalse())

		id, _ := st.Allocate()
		copy(st.Payload(id), []byte("hello"))
		c.AppendSlab(id, 5)

		Expect(c.HasData()).To(BeTrue())
		chunk, ok := c.NextChunk()
		Expect(ok).To(BeTrue())
		Expect(string(chunk.Bytes)).To(Equal("hello"))

		_, ok = c.NextChunk()
		Expect(ok).To(BeFalse())
	})

	It("walks a multi-slab chain and truncates the tail to its filled length", func() {
		st, _ := slab.New(8, 4) // 4-byte payload per slab
		c := connection.New(1, 5, connection.RoleServerAccepted, 0, st)

		a, _ := st.Allocate()
		copy(st.Payload(a), []byte("abcd"))
		c.AppendSlab(a, 4)

		b, _ := st.Allocate()
		copy(st.Payload(b), []byte("xy"))
		c.AppendSlab(b, 2)

		first, ok := c.NextChunk()
		Expect(ok).To(BeTrue())
		Expect(string(first.Bytes)).To(Equal("abcd"))

		second, ok := c.NextChunk()
		Expect(ok).To(BeTrue())
		Expect(string(second.Bytes)).To(Equal("xy"))

		_, ok = c.NextChunk()
		Expect(ok).To(BeFalse())
	})

	It("frees the consumed prefix via ClearThrough and keeps the remainder", func() {
		st, _ := slab.New(8, 4)
		c := connection.New(1, 5, connection.RoleServerAccepted, 0, st)

		a, _ := st.Allocate()
		copy(st.Payload(a), []byte("abcd"))
		c.AppendSlab(a, 4)

		b, _ := st.Allocate()
		copy(st.Payload(b), []byte("xy"))
		c.AppendSlab(b, 2)

		Expect(st.InUse()).To(Equal(2))
		c.ClearThrough(a)
		Expect(st.InUse()).To(Equal(1))

		chunk, ok := c.NextChunk()
		Expect(ok).To(BeTrue())
		Expect(string(chunk.Bytes)).To(Equal("xy"))
	})

	It("frees the whole chain via ClearAll", func() {
		st, _ := slab.New(8, 4)
		c := connection.New(1, 5, connection.RoleServerAccepted, 0, st)

		a, _ := st.Allocate()
		c.AppendSlab(a, 3)
		b, _ := st.Allocate()
		c.AppendSlab(b, 3)

		c.ClearAll()
		Expect(st.InUse()).To(Equal(0))
		Expect(c.HasData()).To(BeFalse())

		_, ok := c.NextChunk()
		Expect(ok).To(BeFalse())
	})

	It("tracks closed state and attachment independently of the read chain", func() {
		st, _ := slab.New(8, 2)
		c := connection.New(1, 5, connection.RoleOutboundClient, 0, st)

		Expect(c.Closed()).To(BeFalse())
		c.Close()
		Expect(c.Closed()).To(BeTrue())

		c.SetAttachment("session-42")
		Expect(c.Attachment()).To(Equal("session-42"))
	})
})
