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

package runtime

import (
	"context"
	"fmt"
	"time"

	"rivaas.dev/runtime/rconfig"
)

// Settings is the process-level configuration surface for a Runtime: the
// handful of knobs an operator tunes per deployment (bind address, server
// timeouts, route timeout bounds, service identity) without touching code.
// Field names double as rconfig's default struct tag binding keys.
type Settings struct {
	Addr string `config:"addr" default:":8080"`

	ReadHeaderTimeout time.Duration `config:"read_header_timeout" default:"5s"`
	ReadTimeout       time.Duration `config:"read_timeout"        default:"30s"`
	WriteTimeout      time.Duration `config:"write_timeout"       default:"30s"`
	IdleTimeout       time.Duration `config:"idle_timeout"        default:"120s"`

	DefaultRouteTimeout time.Duration `config:"default_route_timeout" default:"10s"`
	MaxRouteTimeout     time.Duration `config:"max_route_timeout"     default:"30s"`

	ServiceName    string `config:"service_name"    default:"rivaas-runtime"`
	ServiceVersion string `config:"service_version" default:"unknown"`
	Environment    string `config:"environment"     default:"development"`
}

// Validate implements rconfig.Validator, rejecting a configuration whose
// route timeout bound is internally inconsistent: route timeouts are
// clamped to [1, max], so max must be at least the default.
func (s *Settings) Validate() error {
	if s.MaxRouteTimeout < s.DefaultRouteTimeout {
		return fmt.Errorf("settings: max_route_timeout (%s) must be >= default_route_timeout (%s)",
			s.MaxRouteTimeout, s.DefaultRouteTimeout)
	}
	return nil
}

// LoadSettingsFromEnv loads Settings from prefix-filtered environment
// variables (e.g. prefix "RIVAAS_" reads RIVAAS_ADDR), applying the
// `default` tags above for anything unset. rconfig's environment source
// splits multi-word variable names into nested keys on every underscore
// (RIVAAS_MAX_ROUTE_TIMEOUT becomes max.route.timeout, not
// max_route_timeout), so the multi-word fields below are best set from a
// config file via rconfig.WithFile instead, where a flat
// "max_route_timeout:" key matches the struct tag directly.
func LoadSettingsFromEnv(ctx context.Context, prefix string) (*Settings, error) {
	var s Settings
	if _, err := rconfig.FromEnv(ctx, prefix, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WithSettings applies a Settings value to a Runtime's timeout defaults. Use
// with LoadSettingsFromEnv (or rconfig.New+WithFile for a config file) to
// move these knobs out of code and into the deployment environment.
func WithSettings(s *Settings) Option {
	return func(rt *Runtime) {
		rt.defaultTimeout = s.DefaultRouteTimeout
		rt.maxTimeout = s.MaxRouteTimeout
		rt.serverTimeouts = serverTimeouts{
			readHeader: s.ReadHeaderTimeout,
			read:       s.ReadTimeout,
			write:      s.WriteTimeout,
			idle:       s.IdleTimeout,
		}
	}
}
