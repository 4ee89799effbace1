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

package config

import (
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matrixorigin/seqvec/pkg/common/malloc"
	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/container/rawmem"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

const (
	GoAllocator    = "go"
	ClassAllocator = "class"
	MmapAllocator  = "mmap"
	GuardAllocator = "guard"
)

var (
	defaultLogLevel        = zapcore.InfoLevel.String()
	defaultLogFormat       = "console"
	defaultLogMaxSize      = 512
	defaultClassBufferSize = uint64(64 * malloc.MB)
	defaultRounds          = 64
	defaultOpsPerRound     = 10000
	defaultFaultPermille   = 5

	// overridden in tests
	numCPU = runtime.NumCPU
)

// Config is the toml configuration shared by the tools in cmd/.
type Config struct {
	Log     logutil.LogConfig `toml:"log"`
	Malloc  MallocConfig      `toml:"malloc"`
	Checker CheckerConfig     `toml:"checker"`
	Stress  StressConfig      `toml:"stress"`
}

// MallocConfig selects the default allocator stack.
type MallocConfig struct {
	// Allocator is one of "go", "class", "mmap" or "guard".
	Allocator string `toml:"allocator"`
	// ClassBufferSize bounds the bytes a class allocator keeps for reuse.
	ClassBufferSize uint64 `toml:"class-buffer-size"`
	// Limit caps the bytes in use, 0 means no limit.
	Limit uint64 `toml:"limit"`
	// Metrics wraps the stack with prometheus collectors.
	Metrics bool `toml:"metrics"`
}

// CheckerConfig controls slot liveness checking in rawmem.
type CheckerConfig struct {
	Enable  bool `toml:"enable"`
	Verbose bool `toml:"verbose"`
}

type StressConfig struct {
	Workers           int    `toml:"workers"`
	Rounds            int    `toml:"rounds"`
	OpsPerRound       int    `toml:"ops-per-round"`
	FaultRatePermille int    `toml:"fault-rate-permille"`
	Seed              int64  `toml:"seed"`
	MetricsAddr       string `toml:"metrics-addr"`
}

// Parse decodes the toml file at path, fills defaults and validates the
// result. Unknown keys are rejected.
func Parse(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, moerr.NewBadConfigNoCtx("decode %s: %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, moerr.NewBadConfigNoCtx("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	faults := cfg.Stress.FaultRatePermille
	cfg.SetDefaultValues()
	if md.IsDefined("stress", "fault-rate-permille") {
		// an explicit 0 turns fault injection off
		cfg.Stress.FaultRatePermille = faults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaultValues fills every zero field that has a default. Parse keeps a
// fault-rate-permille of 0 when the file sets it.
func (c *Config) SetDefaultValues() {
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = defaultLogMaxSize
	}
	if c.Log.Filename == "" {
		c.Log.DisableStore = true
	}

	if c.Malloc.Allocator == "" {
		c.Malloc.Allocator = GoAllocator
	}
	if c.Malloc.ClassBufferSize == 0 {
		c.Malloc.ClassBufferSize = defaultClassBufferSize
	}

	if c.Stress.Workers == 0 {
		c.Stress.Workers = numCPU()
	}
	if c.Stress.Rounds == 0 {
		c.Stress.Rounds = defaultRounds
	}
	if c.Stress.OpsPerRound == 0 {
		c.Stress.OpsPerRound = defaultOpsPerRound
	}
	if c.Stress.FaultRatePermille == 0 {
		c.Stress.FaultRatePermille = defaultFaultPermille
	}
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return moerr.NewBadConfigNoCtx("log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfigNoCtx("log format %q", c.Log.Format)
	}
	if err := c.Malloc.Validate(); err != nil {
		return err
	}
	if c.Stress.Workers < 0 {
		return moerr.NewBadConfigNoCtx("stress workers %d", c.Stress.Workers)
	}
	if c.Stress.Rounds < 0 {
		return moerr.NewBadConfigNoCtx("stress rounds %d", c.Stress.Rounds)
	}
	if c.Stress.OpsPerRound < 0 {
		return moerr.NewBadConfigNoCtx("stress ops-per-round %d", c.Stress.OpsPerRound)
	}
	if c.Stress.FaultRatePermille < 0 || c.Stress.FaultRatePermille > 1000 {
		return moerr.NewBadConfigNoCtx("stress fault-rate-permille %d not in [0, 1000]", c.Stress.FaultRatePermille)
	}
	return nil
}

func (m *MallocConfig) Validate() error {
	switch m.Allocator {
	case GoAllocator, ClassAllocator, MmapAllocator, GuardAllocator:
		return nil
	}
	return moerr.NewBadConfigNoCtx("malloc allocator %q", m.Allocator)
}

// Build constructs the allocator stack: the base allocator, then the limit,
// then metrics. Metric collectors are registered with reg when metrics are
// enabled.
func (m *MallocConfig) Build(reg prometheus.Registerer) (malloc.Allocator, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var allocator malloc.Allocator
	switch m.Allocator {
	case GoAllocator:
		allocator = malloc.NewGoAllocator()
	case ClassAllocator:
		allocator = malloc.NewClassAllocator(m.ClassBufferSize)
	case MmapAllocator:
		allocator = malloc.NewMmapAllocator()
	case GuardAllocator:
		allocator = malloc.NewGuardAllocator()
	}

	if m.Limit > 0 {
		allocator = malloc.NewLimitAllocator(allocator, m.Limit)
	}

	if m.Metrics {
		collectors := malloc.NewCollectors("seqvec", "malloc")
		if reg != nil {
			if err := collectors.Register(reg); err != nil {
				return nil, moerr.NewBadConfigNoCtx("register malloc metrics: %v", err)
			}
		}
		allocator = malloc.NewMetricsAllocatorWith(allocator, collectors)
	}

	return allocator, nil
}

// Apply sets up the global logger, installs the allocator stack as the
// default allocator and toggles the rawmem checker.
func (c *Config) Apply(reg prometheus.Registerer) error {
	logutil.SetupMOLogger(&c.Log)
	allocator, err := c.Malloc.Build(reg)
	if err != nil {
		return err
	}
	malloc.SetDefault(allocator)
	rawmem.EnableChecker(c.Checker.Enable)
	rawmem.EnableVerbose(c.Checker.Verbose)
	logutil.Info("config applied",
		zap.String("allocator", c.Malloc.Allocator),
		zap.Uint64("limit", c.Malloc.Limit),
		zap.Bool("metrics", c.Malloc.Metrics),
		zap.Bool("checker", c.Checker.Enable),
	)
	return nil
}
