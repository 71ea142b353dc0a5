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

// Package rconfig assembles process configuration from multiple sources
// (files, environment variables) into a single lowercase-keyed map, with
// optional binding onto a typed struct via `config`-tagged fields. It wraps
// dario.cat/mergo, github.com/go-viper/mapstructure/v2, and
// github.com/spf13/cast, trimmed to the sources and formats this runtime
// actually needs.
package rconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Option configures a Config. Each option can fail (a bad file path, an
// unreadable codec), so New collects every error via errors.Join rather
// than panicking mid-assembly.
type Option func(c *Config) error

// Validator is implemented by binding structs that validate themselves
// after defaults and decoding have been applied.
type Validator interface {
	Validate() error
}

// Config merges configuration data loaded from an ordered list of sources,
// later sources overriding earlier ones, and exposes it both as a
// case-insensitive dot-path map and, optionally, bound onto a struct.
//
// Config is safe for concurrent use.
type Config struct {
	values  *map[string]any
	sources []Source
	binding any
	tagName string

	mu sync.RWMutex

	customValidators []func(map[string]any) error

	decoderConfig *mapstructure.DecoderConfig
	decoderOnce   sync.Once
}

// WithSource adds an arbitrary Source to the load order.
func WithSource(src Source) Option {
	return func(c *Config) error {
		if src == nil {
			return errors.New("rconfig: source cannot be nil")
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFile adds a file source whose format is detected from path's
// extension. Paths support ${VAR}/$VAR expansion.
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return NewError("file-source", "detect-format", err)
		}
		decoder, err := decoderFor(format)
		if err != nil {
			return NewError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, NewFileSource(path, decoder))
		return nil
	}
}

// WithFileAs adds a file source with an explicit format, for paths without
// an extension or whose extension doesn't match their contents.
func WithFileAs(path string, format Format) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		decoder, err := decoderFor(format)
		if err != nil {
			return NewError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, NewFileSource(path, decoder))
		return nil
	}
}

// WithContent adds a source that decodes data directly in the given format,
// for embedded or dynamically generated configuration.
func WithContent(data []byte, format Format) Option {
	return func(c *Config) error {
		decoder, err := decoderFor(format)
		if err != nil {
			return NewError("content-source", "get-decoder", err)
		}
		c.sources = append(c.sources, NewFileContentSource(data, decoder))
		return nil
	}
}

// WithEnv adds an environment-variable source filtered by prefix; see
// EnvSource for the APP_SERVER_PORT -> server.port naming convention.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, NewEnvSource(prefix))
		return nil
	}
}

// WithBinding decodes loaded values onto v (a pointer to a struct) on
// every Load.
func WithBinding(v any) Option {
	return func(c *Config) error {
		if v == nil {
			return errors.New("rconfig: binding target cannot be nil")
		}
		if reflect.TypeOf(v).Kind() != reflect.Ptr {
			return errors.New("rconfig: binding target must be a pointer")
		}
		c.binding = v
		return nil
	}
}

// WithTag overrides the struct tag used for binding and for the `default`
// fallback value (default: "config").
func WithTag(tagName string) Option {
	return func(c *Config) error {
		if tagName == "" {
			return errors.New("rconfig: tag name cannot be empty")
		}
		c.tagName = tagName
		return nil
	}
}

// WithValidator registers a function run against the merged map on every
// Load, before binding.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		c.customValidators = append(c.customValidators, fn)
		return nil
	}
}

// New assembles a Config from options, collecting every option error with
// errors.Join rather than stopping at the first one.
func New(options ...Option) (*Config, error) {
	var errs error
	c := &Config{
		values:  &map[string]any{},
		tagName: "config",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return c, errs
}

// MustNew is New, panicking on error. Reserved for main()/init() call sites.
func MustNew(options ...Option) *Config {
	c, err := New(options...)
	if err != nil {
		panic(fmt.Sprintf("rconfig: failed to create config: %v", err))
	}
	return c
}

// FromEnv is a convenience constructor for the common case: a single
// prefix-filtered environment source, optionally bound onto a struct whose
// `default` tags are applied for anything the environment doesn't set, then
// immediately Loaded.
func FromEnv(ctx context.Context, prefix string, binding any) (*Config, error) {
	opts := []Option{WithEnv(prefix)}
	if binding != nil {
		opts = append(opts, WithBinding(binding))
	}
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func applyDefaults(target any) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr {
		return errors.New("rconfig: default target must be a pointer")
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return errors.New("rconfig: default target must be a pointer to a struct")
	}
	return setDefaults(val)
}

func setDefaults(val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := setDefaults(field); err != nil {
				return err
			}
			continue
		}
		defaultTag := fieldType.Tag.Get("default")
		if defaultTag == "" || !isZeroValue(field) {
			continue
		}
		if err := setDefaultValue(field, defaultTag); err != nil {
			return fmt.Errorf("rconfig: default for field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(defaultVal)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(defaultVal)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := cast.ToInt64E(defaultVal)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := cast.ToUint64E(defaultVal)
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(defaultVal)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(defaultVal)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("rconfig: unsupported type for default tag: %s", field.Kind())
	}
	return nil
}

func (c *Config) getDecoderConfig() *mapstructure.DecoderConfig {
	c.decoderOnce.Do(func() {
		tagName := c.tagName
		if tagName == "" {
			tagName = "config"
		}
		c.decoderConfig = &mapstructure.DecoderConfig{
			TagName:          tagName,
			Squash:           true,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.StringToTimeHookFunc(time.RFC3339),
			),
		}
	})
	return c.decoderConfig
}

// normalizeMapKeys lowercases every key recursively so merges and lookups
// are case-insensitive regardless of source casing.
func normalizeMapKeys(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		lower := strings.ToLower(k)
		if nested, ok := v.(map[string]any); ok {
			out[lower] = normalizeMapKeys(nested)
		} else {
			out[lower] = v
		}
	}
	return out
}

// loadSourcesSequential loads every source in order and merges each result
// over the accumulated map with mergo.WithOverride, so later sources win —
// the precedence a caller expects from e.g. WithFile then WithEnv.
func (c *Config) loadSourcesSequential(ctx context.Context) (map[string]any, error) {
	if len(c.sources) == 0 {
		return make(map[string]any), nil
	}

	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loaded, err := src.Load(ctx)
		if err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if loaded == nil {
			loaded = make(map[string]any)
		}

		if err := mergo.Map(&merged, normalizeMapKeys(loaded), mergo.WithOverride); err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}
	return merged, nil
}

// Load loads every registered source, runs custom validators, and — if a
// binding struct was configured — decodes and validates onto it before
// atomically swapping in the new values.
func (c *Config) Load(ctx context.Context) error {
	if ctx == nil {
		return errors.New("rconfig: context cannot be nil")
	}

	values, err := c.loadSourcesSequential(ctx)
	if err != nil {
		return err
	}

	for i, fn := range c.customValidators {
		if fn == nil {
			continue
		}
		if err := fn(values); err != nil {
			return NewError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		if err := c.bindAndValidate(values); err != nil {
			return NewError("binding", "validate", err)
		}
		if err := c.bind(&values); err != nil {
			return NewError("binding", "bind", err)
		}
	}

	c.values = &values
	return nil
}

// MustLoad is Load, panicking on error.
func (c *Config) MustLoad(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		panic(err)
	}
}

func (c *Config) bind(values *map[string]any) error {
	dc := c.getDecoderConfig()
	dc.Result = c.binding

	decoder, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return fmt.Errorf("rconfig: build decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("rconfig: decode: %w", err)
	}
	return applyDefaults(c.binding)
}

// bindAndValidate decodes onto a scratch copy of the binding struct first,
// so a bad Load never corrupts the struct a caller is already reading.
func (c *Config) bindAndValidate(values map[string]any) error {
	bindingType := reflect.TypeOf(c.binding)
	if bindingType.Kind() == reflect.Ptr {
		bindingType = bindingType.Elem()
	}
	scratch := reflect.New(bindingType).Interface()

	dc := c.getDecoderConfig()
	dc.Result = scratch

	decoder, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return fmt.Errorf("rconfig: build decoder: %w", err)
	}
	if err := decoder.Decode(&values); err != nil {
		return fmt.Errorf("rconfig: decode: %w", err)
	}
	if err := applyDefaults(scratch); err != nil {
		return err
	}
	if v, ok := scratch.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Values returns the current merged configuration map.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.values == nil {
		return make(map[string]any)
	}
	return *c.values
}

// getValueFromMap resolves a dot-path (case-insensitively) against the
// merged map, falling back to segment-by-segment traversal when no direct
// key matches.
func (c *Config) getValueFromMap(path string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.values == nil {
		return nil
	}
	current := *c.values
	normalized := strings.ToLower(path)

	if val, ok := current[normalized]; ok {
		return val
	}

	segments := strings.Split(normalized, ".")
	for i, segment := range segments {
		val, ok := current[segment]
		if !ok {
			return nil
		}
		if i == len(segments)-1 {
			return val
		}
		nested, ok := val.(map[string]any)
		if !ok {
			return nil
		}
		current = nested
	}
	return nil
}

// Get returns the raw value at key, or nil if absent.
func (c *Config) Get(key string) any {
	if c == nil || key == "" {
		return nil
	}
	return c.getValueFromMap(key)
}
