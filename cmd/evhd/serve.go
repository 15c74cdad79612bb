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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nabbar/evh/config"
	"github.com/nabbar/evh/connection"
	"github.com/nabbar/evh/evh"
	"github.com/nabbar/evh/worker"
)

func newServeCmd() *cobra.Command {
	var (
		cfgFile     string
		addr        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run an echo-style evh instance from a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgFile, addr, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML/JSON/TOML config file (defaults built-in if empty)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:9443", "address to listen on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address at /metrics")

	return cmd
}

func runServe(cfgFile, addr, metricsAddr string) error {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.FromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	ctl, err := evh.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}

	if err = ctl.SetOnRead(func(c *connection.Conn, ctx *worker.ReadContext) error {
		for {
			chunk, ok := ctx.NextChunk()
			if !ok {
				break
			}
			c.Queue.Push(echoEntry(chunk.Bytes))
			ctx.ClearThrough(chunk.Slab)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("installing on-read: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = ctl.Start(ctx); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}

	bound, err := ctl.AddServer(addr)
	if err != nil {
		_ = ctl.Stop()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	fmt.Printf("evhd: echoing on %s\n", bound)

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(ctl.PrometheusCollector("evhd"))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if lerr := srv.ListenAndServe(); lerr != nil && lerr != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "evhd: metrics server: %v\n", lerr)
			}
		}()
		defer srv.Close()
		fmt.Printf("evhd: metrics on http://%s/metrics\n", metricsAddr)
	}

	<-ctx.Done()

	fmt.Println("evhd: shutting down")
	return ctl.Stop()
}
