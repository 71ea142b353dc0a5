// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rlog

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// WithHandlerType sets the handler a Config builds.
func WithHandlerType(t HandlerType) Option { return func(c *Config) { c.handlerType = t } }

// WithJSONHandler selects JSON output (the default).
func WithJSONHandler() Option { return WithHandlerType(JSONHandler) }

// WithTextHandler selects key=value text output.
func WithTextHandler() Option { return WithHandlerType(TextHandler) }

// WithConsoleHandler selects colored, human-readable output for local
// development.
func WithConsoleHandler() Option { return WithHandlerType(ConsoleHandler) }

// WithOutput sets the output writer. Default: os.Stdout.
func WithOutput(w io.Writer) Option { return func(c *Config) { c.output = w } }

// WithFileRotation writes logs to a rotated file via lumberjack: path is
// the active log file, maxSizeMB the size at which it rotates, maxBackups
// how many rotated files to keep, and maxAgeDays how long to keep them.
func WithFileRotation(path string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(c *Config) {
		l := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		c.output = l
		c.rotator = l
	}
}

// WithLevel sets the minimum log level. Default: LevelInfo.
func WithLevel(l Level) Option { return func(c *Config) { c.level = l } }

// WithDebugLevel enables debug logging.
func WithDebugLevel() Option { return WithLevel(LevelDebug) }

// WithServiceName sets the "service" field attached to every log entry.
func WithServiceName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.serviceName = name
		}
	}
}

// WithServiceVersion sets the "version" field attached to every log entry.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		if version != "" {
			c.serviceVersion = version
		}
	}
}

// WithEnvironment sets the "env" field attached to every log entry.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		if env != "" {
			c.environment = env
		}
	}
}

// WithSource adds the calling source file and line to every log entry.
func WithSource(enabled bool) Option { return func(c *Config) { c.addSource = enabled } }

// WithReplaceAttr sets a custom attribute replacer run after the built-in
// sensitive-field redaction.
func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(c *Config) { c.replaceAttr = fn }
}

// WithCustomLogger bypasses handler construction entirely and uses l
// as-is. SetLevel is unsupported on a Config built this way.
func WithCustomLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.customLogger = l
		c.useCustom = true
	}
}

// WithGlobalLogger registers this Config's logger as the slog package
// default. Off by default so multiple Configs can coexist in one process.
func WithGlobalLogger() Option { return func(c *Config) { c.registerGlobal = true } }

// WithSampling enables log sampling to bound volume under high traffic.
// Error-level entries always bypass sampling.
func WithSampling(cfg SamplingConfig) Option {
	return func(c *Config) { c.samplingConfig = &cfg }
}
