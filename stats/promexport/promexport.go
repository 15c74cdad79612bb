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

// Package promexport projects a stats.Snapshot source onto the
// prometheus.Collector interface, so a Controller's aggregate counters can
// be scraped alongside the rest of a process's metrics.
package promexport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/evh/stats"
)

// Collector adapts a snapshot-producing func into a prometheus.Collector.
// The func is called once per scrape, so it should be cheap (reading an
// atomic Slot, not recomputing anything).
type Collector struct {
	snapshot func() stats.Snapshot

	accepts  *prometheus.Desc
	reads    *prometheus.Desc
	writes   *prometheus.Desc
	bytesIn  *prometheus.Desc
	bytesOut *prometheus.Desc
	closes   *prometheus.Desc
	errors   *prometheus.Desc
	open     *prometheus.Desc
	slabs    *prometheus.Desc
}

func New(namespace string, snapshot func() stats.Snapshot) *Collector {
	ns := namespace
	return &Collector{
		snapshot: snapshot,
		accepts:  prometheus.NewDesc(ns+"_accepts_total", "Total accepted connections.", nil, nil),
		reads:    prometheus.NewDesc(ns+"_reads_total", "Total successful socket reads.", nil, nil),
		writes:   prometheus.NewDesc(ns+"_writes_total", "Total successful socket writes.", nil, nil),
		bytesIn:  prometheus.NewDesc(ns+"_bytes_in_total", "Total bytes read from peers.", nil, nil),
		bytesOut: prometheus.NewDesc(ns+"_bytes_out_total", "Total bytes written to peers.", nil, nil),
		closes:   prometheus.NewDesc(ns+"_closes_total", "Total connections closed.", nil, nil),
		errors:   prometheus.NewDesc(ns+"_errors_total", "Total connection errors.", nil, nil),
		open:     prometheus.NewDesc(ns+"_open_connections", "Currently open connections.", nil, nil),
		slabs:    prometheus.NewDesc(ns+"_slabs_in_use", "Currently allocated read slabs.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accepts
	ch <- c.reads
	ch <- c.writes
	ch <- c.bytesIn
	ch <- c.bytesOut
	ch <- c.closes
	ch <- c.errors
	ch <- c.open
	ch <- c.slabs
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.accepts, prometheus.CounterValue, float64(s.Accepts))
	ch <- prometheus.MustNewConstMetric(c.reads, prometheus.CounterValue, float64(s.Reads))
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(s.Writes))
	ch <- prometheus.MustNewConstMetric(c.bytesIn, prometheus.CounterValue, float64(s.BytesIn))
	ch <- prometheus.MustNewConstMetric(c.bytesOut, prometheus.CounterValue, float64(s.BytesOut))
	ch <- prometheus.MustNewConstMetric(c.closes, prometheus.CounterValue, float64(s.Closes))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(s.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.slabs, prometheus.GaugeValue, float64(s.SlabsInUse))
}
