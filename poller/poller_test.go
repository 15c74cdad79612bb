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

package poller_test

import (
	"os"
	"time"

	"github.com/nabbar/evh/poller"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Poll", func() {
	It("reports readability on a pipe once data is written", func() {
		p, err := poller.New()
		Expect(err).To(BeNil())
		defer p.Close()

		r, w, e := os.Pipe()
		Expect(e).To(BeNil())
		defer r.Close()
		defer w.Close()

		Expect(p.Register(int(r.Fd()), true, false)).To(BeNil())

		_, e = w.Write([]byte("x"))
		Expect(e).To(BeNil())

		var events []poller.Event
		Eventually(func() bool {
			events, err = p.Wait(events[:0], 200*time.Millisecond)
			Expect(err).To(BeNil())
			for _, ev := range events {
				if ev.Handle == int(r.Fd()) && ev.Readable {
					return true
				}
			}
			return false
		}, time.Second).Should(BeTrue())
	})

	It("wakes a blocked Wait via Trigger", func() {
		p, err := poller.New()
		Expect(err).To(BeNil())
		defer p.Close()

		done := make(chan []poller.Event, 1)
		go func() {
			ev, _ := p.Wait(nil, 5*time.Second)
			done <- ev
		}()

		time.Sleep(50 * time.Millisecond)
		Expect(p.Trigger()).To(BeNil())

		select {
		case ev := <-done:
			woken := false
			for _, e := range ev {
				if e.Woken {
					woken = true
				}
			}
			Expect(woken).To(BeTrue())
		case <-time.After(2 * time.Second):
			Fail("Wait did not return after Trigger")
		}
	})
})
