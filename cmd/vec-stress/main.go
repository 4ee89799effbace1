// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matrixorigin/seqvec/pkg/config"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

// vec-stress drives vectors with fault-injecting element traits against a
// slice model and exits 1 when the two ever disagree.
func main() {
	os.Exit(runMain(os.Args[1:], prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
}

type options struct {
	configFile      string
	cpuProfilePath  string
	heapProfilePath string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("vec-stress", flag.ContinueOnError)
	fs.StringVar(&opts.configFile, "cfg", "", "toml configuration, built-in defaults when empty")
	fs.StringVar(&opts.cpuProfilePath, "cpu-profile", "", "write cpu profile to the specified file")
	fs.StringVar(&opts.heapProfilePath, "heap-profile", "", "write heap profile to the specified file")
	err := fs.Parse(args)
	return opts, err
}

func runMain(args []string, reg prometheus.Registerer, gatherer prometheus.Gatherer) int {
	opts, err := parseFlags(args)
	if err != nil {
		return 2
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse config from %s, error: %s\n", opts.configFile, err.Error())
		return 2
	}
	if err := cfg.Apply(reg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to apply config, error: %s\n", err.Error())
		return 2
	}

	if opts.cpuProfilePath != "" {
		stop := startCPUProfile(opts.cpuProfilePath)
		defer stop()
	}

	m := newMetrics(reg)
	stopServer := startMetricsServer(cfg.Stress.MetricsAddr, gatherer)
	defer stopServer()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep, err := run(ctx, cfg.Stress, m)
	if opts.heapProfilePath != "" {
		writeHeapProfile(opts.heapProfilePath)
	}
	if err != nil {
		logutil.Error("stress run failed", zap.Error(err))
		return 1
	}
	rep.log()
	if rep.divergences.Load() > 0 {
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.SetDefaultValues()
		return cfg, cfg.Validate()
	}
	return config.Parse(path)
}
