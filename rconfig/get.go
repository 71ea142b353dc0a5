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

package rconfig

import (
	"time"

	"github.com/spf13/cast"
)

// String returns the value at key cast to string, or "" if absent/unconvertible.
func (c *Config) String(key string) string {
	if c == nil {
		return ""
	}
	return cast.ToString(c.Get(key))
}

// Int returns the value at key cast to int, or 0 if absent/unconvertible.
func (c *Config) Int(key string) int {
	if c == nil {
		return 0
	}
	return cast.ToInt(c.Get(key))
}

// Int64 returns the value at key cast to int64, or 0 if absent/unconvertible.
func (c *Config) Int64(key string) int64 {
	if c == nil {
		return 0
	}
	return cast.ToInt64(c.Get(key))
}

// Float64 returns the value at key cast to float64, or 0 if absent/unconvertible.
func (c *Config) Float64(key string) float64 {
	if c == nil {
		return 0
	}
	return cast.ToFloat64(c.Get(key))
}

// Bool returns the value at key cast to bool, or false if absent/unconvertible.
func (c *Config) Bool(key string) bool {
	if c == nil {
		return false
	}
	return cast.ToBool(c.Get(key))
}

// Duration returns the value at key cast to time.Duration, or 0 if absent/unconvertible.
func (c *Config) Duration(key string) time.Duration {
	if c == nil {
		return 0
	}
	return cast.ToDuration(c.Get(key))
}

// Time returns the value at key cast to time.Time, or the zero Time if absent/unconvertible.
func (c *Config) Time(key string) time.Time {
	if c == nil {
		return time.Time{}
	}
	return cast.ToTime(c.Get(key))
}

// StringSlice returns the value at key cast to []string, or an empty slice.
func (c *Config) StringSlice(key string) []string {
	if c == nil {
		return []string{}
	}
	return cast.ToStringSlice(c.Get(key))
}

// IntSlice returns the value at key cast to []int, or an empty slice.
func (c *Config) IntSlice(key string) []int {
	if c == nil {
		return []int{}
	}
	return cast.ToIntSlice(c.Get(key))
}

// StringMap returns the value at key cast to map[string]any, or an empty map.
func (c *Config) StringMap(key string) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return cast.ToStringMap(c.Get(key))
}

// StringOr returns the value at key, or defaultVal if the key is absent.
// Checking for a nil Get before casting matters: cast.ToStringE(nil) returns
// ("", nil), not an error, so casting first would silently return the zero
// value instead of defaultVal for a missing key.
func (c *Config) StringOr(key, defaultVal string) string {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToString(val)
}

// IntOr returns the value at key, or defaultVal if the key is absent.
func (c *Config) IntOr(key string, defaultVal int) int {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToInt(val)
}

// Int64Or returns the value at key, or defaultVal if the key is absent.
func (c *Config) Int64Or(key string, defaultVal int64) int64 {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToInt64(val)
}

// Float64Or returns the value at key, or defaultVal if the key is absent.
func (c *Config) Float64Or(key string, defaultVal float64) float64 {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToFloat64(val)
}

// BoolOr returns the value at key, or defaultVal if the key is absent.
func (c *Config) BoolOr(key string, defaultVal bool) bool {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToBool(val)
}

// DurationOr returns the value at key, or defaultVal if the key is absent.
func (c *Config) DurationOr(key string, defaultVal time.Duration) time.Duration {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToDuration(val)
}

// TimeOr returns the value at key, or defaultVal if the key is absent.
func (c *Config) TimeOr(key string, defaultVal time.Time) time.Time {
	if c == nil {
		return defaultVal
	}
	val := c.Get(key)
	if val == nil {
		return defaultVal
	}
	return cast.ToTime(val)
}
