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

// Package rlog wraps log/slog: a Config built from functional options, a
// choice of JSON/text/console handlers, and optional sampling for
// high-traffic deployments.
package rlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// bgCtx is reused across log calls that carry no request context; it is
// immutable and never used for cancellation.
var bgCtx = context.Background()

// HandlerType selects the slog.Handler a Config builds.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs, the production default.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs, for local development.
	ConsoleHandler HandlerType = "console"
)

// Level aliases slog.Level so callers need not import log/slog directly.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	// ErrNilLogger is returned when WithCustomLogger is given a nil logger.
	ErrNilLogger = errors.New("rlog: custom logger is nil")
	// ErrInvalidHandler is returned for an unrecognized HandlerType.
	ErrInvalidHandler = errors.New("rlog: invalid handler type")
	// ErrCannotChangeLevel is returned by SetLevel on a custom logger, whose
	// level is controlled externally.
	ErrCannotChangeLevel = errors.New("rlog: cannot change level on custom logger")
)

// SamplingConfig reduces log volume in high-traffic deployments: the first
// Initial entries log unconditionally, then 1 in Thereafter, with the
// counter reset every Tick. Error-level entries always bypass sampling.
type SamplingConfig struct {
	Initial    int
	Thereafter int
	Tick       time.Duration
}

// Config is a structured logger over a slog.Handler. All exported methods
// are safe for concurrent use: logger swaps go through an atomic.Pointer,
// and mu only serializes reconfiguration (SetLevel).
type Config struct {
	handlerType HandlerType
	output      io.Writer
	level       Level

	serviceName    string
	serviceVersion string
	environment    string

	addSource   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	samplingConfig *SamplingConfig
	sampleCounter  atomic.Int64
	sampleTicker   *time.Ticker
	sampleStop     chan struct{}

	customLogger *slog.Logger
	useCustom    bool

	logger         atomic.Pointer[slog.Logger]
	mu             sync.Mutex
	isShuttingDown atomic.Bool

	registerGlobal bool

	rotator io.Closer // non-nil when WithFileRotation backs output
}

// Option configures a Config.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		handlerType:    JSONHandler,
		output:         os.Stdout,
		level:          LevelInfo,
		serviceName:    "rivaas-runtime",
		serviceVersion: "unknown",
		environment:    "development",
	}
}

// New builds a Config from opts. It never calls slog.SetDefault unless
// WithGlobalLogger is passed, so multiple Configs can coexist in one
// process without clobbering each other.
func New(opts ...Option) (*Config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("rlog: invalid configuration: %w", err)
	}
	if err := c.initialize(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is New, panicking on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic("rlog: initialization failed: " + err.Error())
	}
	return c
}

func (c *Config) validate() error {
	if c.output == nil {
		return errors.New("output writer cannot be nil")
	}
	if c.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if c.useCustom && c.customLogger == nil {
		return ErrNilLogger
	}
	if c.samplingConfig != nil && (c.samplingConfig.Initial < 0 || c.samplingConfig.Thereafter < 0) {
		return errors.New("sampling config values must be non-negative")
	}
	return nil
}

func (c *Config) initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.initializeHandler(); err != nil {
		return err
	}

	if c.samplingConfig != nil && c.samplingConfig.Tick > 0 {
		c.sampleStop = make(chan struct{})
		c.sampleTicker = time.NewTicker(c.samplingConfig.Tick)
		go c.samplingResetter()
	}
	return nil
}

func (c *Config) samplingResetter() {
	for {
		select {
		case <-c.sampleTicker.C:
			c.sampleCounter.Store(0)
		case <-c.sampleStop:
			return
		}
	}
}

// shouldSample decides whether a level should be logged; errors always pass.
func (c *Config) shouldSample(level slog.Level) bool {
	if level >= slog.LevelError {
		return true
	}
	if c.samplingConfig == nil {
		return true
	}
	count := c.sampleCounter.Add(1)
	if count <= int64(c.samplingConfig.Initial) {
		return true
	}
	if c.samplingConfig.Thereafter == 0 {
		return false
	}
	return (count-int64(c.samplingConfig.Initial))%int64(c.samplingConfig.Thereafter) == 0
}

func (c *Config) initializeHandler() error {
	if c.useCustom {
		c.logger.Store(c.customLogger)
		if c.registerGlobal {
			slog.SetDefault(c.customLogger)
		}
		return nil
	}

	opts := &slog.HandlerOptions{
		Level:       c.level,
		AddSource:   c.addSource,
		ReplaceAttr: c.buildReplaceAttr(),
	}

	var handler slog.Handler
	switch c.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(c.output, opts)
	case TextHandler:
		handler = slog.NewTextHandler(c.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(c.output, opts)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, c.handlerType)
	}

	logger := slog.New(handler).With(
		"service", c.serviceName,
		"version", c.serviceVersion,
		"env", c.environment,
	)
	c.logger.Store(logger)
	if c.registerGlobal {
		slog.SetDefault(logger)
	}
	return nil
}

// buildReplaceAttr redacts well-known sensitive keys before delegating to
// any caller-supplied replacer.
func (c *Config) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case "password", "token", "secret", "api_key", "authorization":
			return slog.String(a.Key, "***REDACTED***")
		}
		if c.replaceAttr != nil {
			return c.replaceAttr(groups, a)
		}
		return a
	}
}

// Logger returns the underlying slog.Logger.
func (c *Config) Logger() *slog.Logger { return c.logger.Load() }

// With returns a logger with additional attributes.
func (c *Config) With(args ...any) *slog.Logger { return c.Logger().With(args...) }

func (c *Config) log(level slog.Level, msg string, args ...any) {
	if c.isShuttingDown.Load() {
		return
	}
	logger := c.Logger()
	if !logger.Enabled(bgCtx, level) {
		return
	}
	if !c.shouldSample(level) {
		return
	}
	logger.Log(bgCtx, level, msg, args...)
}

func (c *Config) Debug(msg string, args ...any) { c.log(slog.LevelDebug, msg, args...) }
func (c *Config) Info(msg string, args ...any)  { c.log(slog.LevelInfo, msg, args...) }
func (c *Config) Warn(msg string, args ...any)  { c.log(slog.LevelWarn, msg, args...) }
func (c *Config) Error(msg string, args ...any) { c.log(slog.LevelError, msg, args...) }

// Shutdown stops the sampling ticker and the backing file rotator, if any.
// Further log calls are silently dropped.
func (c *Config) Shutdown() error {
	c.isShuttingDown.Store(true)
	if c.sampleTicker != nil {
		c.sampleTicker.Stop()
		close(c.sampleStop)
	}
	if c.rotator != nil {
		return c.rotator.Close()
	}
	return nil
}

// SetLevel changes the minimum log level at runtime. Not supported on a
// custom logger, whose level is controlled externally.
func (c *Config) SetLevel(level Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.useCustom {
		return ErrCannotChangeLevel
	}
	old := c.level
	c.level = level
	if err := c.initializeHandler(); err != nil {
		c.level = old
		return err
	}
	return nil
}

// IsEnabled reports whether the logger is accepting calls (not shut down).
func (c *Config) IsEnabled() bool { return !c.isShuttingDown.Load() }
