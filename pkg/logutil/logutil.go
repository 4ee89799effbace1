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

package logutil

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var gLogger atomic.Value

func init() {
	SetupMOLogger(&LogConfig{
		Level:        zapcore.InfoLevel.String(),
		Format:       "console",
		DisableStore: true,
	})
}

// SetupMOLogger sets up the global logger.
func SetupMOLogger(conf *LogConfig) {
	logger, err := initMOLogger(conf)
	if err != nil {
		panic(err)
	}
	replaceGlobalLogger(logger)
	Debugf("MO logger init, level=%s, log file=%s", conf.Level, conf.Filename)
}

func initMOLogger(cfg *LogConfig) (*zap.Logger, error) {
	return GetLoggerWithOptions(cfg.getLevel(), cfg.getSinks(), cfg.getOptions()...), nil
}

// GetLoggerWithOptions builds a logger teeing every sink at the given level.
func GetLoggerWithOptions(level zapcore.LevelEnabler, sinks []ZapSink, opts ...zap.Option) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(sinks))
	for _, sink := range sinks {
		cores = append(cores, zapcore.NewCore(sink.enc, sink.out, level))
	}
	return zap.New(zapcore.NewTee(cores...), opts...)
}

// GetGlobalLogger returns the current global zap Logger.
func GetGlobalLogger() *zap.Logger {
	return gLogger.Load().(*zap.Logger)
}

func replaceGlobalLogger(logger *zap.Logger) {
	gLogger.Store(logger)
}

// ReplaceGlobalLogger swaps the global logger and returns a func that restores
// the previous one. Intended for tests.
func ReplaceGlobalLogger(logger *zap.Logger) func() {
	prev := GetGlobalLogger()
	replaceGlobalLogger(logger)
	return func() { replaceGlobalLogger(prev) }
}

type contextFieldsKey struct{}

// WithFields attaches zap fields to ctx; ContextFields picks them up.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if prev, ok := ctx.Value(contextFieldsKey{}).([]zap.Field); ok {
		fields = append(append([]zap.Field{}, prev...), fields...)
	}
	return context.WithValue(ctx, contextFieldsKey{}, fields)
}

// ContextFields returns a zap.Option builder adding the fields stored in ctx.
func ContextFields() func(ctx context.Context) zap.Option {
	return func(ctx context.Context) zap.Option {
		fields, _ := ctx.Value(contextFieldsKey{}).([]zap.Field)
		return zap.Fields(fields...)
	}
}

// Enabled reports whether the global logger emits entries at level.
func Enabled(level zapcore.Level) bool {
	return GetGlobalLogger().Core().Enabled(level)
}
