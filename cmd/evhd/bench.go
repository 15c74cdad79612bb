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

package main

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		addr  string
		conns int
		size  int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "drive client connections against a listening address and print an ok/failed summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(addr, conns, size)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:9443", "address to connect to")
	cmd.Flags().IntVarP(&conns, "conns", "n", 50, "number of concurrent connections")
	cmd.Flags().IntVarP(&size, "size", "s", 256, "payload size per round-trip, in bytes")

	return cmd
}

func runBench(addr string, conns, size int) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	start := time.Now()
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if benchOne(addr, payload) {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				mu.Lock()
				fail++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("evhd bench: %d connections, %d ok, %d failed, %s elapsed\n", conns, ok, fail, elapsed)
	if fail > 0 {
		return fmt.Errorf("%d of %d connections failed", fail, conns)
	}
	return nil
}

func benchOne(addr string, payload []byte) bool {
	c, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return false
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err = c.Write(payload); err != nil {
		return false
	}

	buf := make([]byte, len(payload))
	n := 0
	for n < len(buf) {
		m, err := c.Read(buf[n:])
		if err != nil {
			return false
		}
		n += m
	}

	return string(buf) == string(payload)
}
