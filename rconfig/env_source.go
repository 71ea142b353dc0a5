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
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvSource loads configuration from prefix-filtered process environment
// variables, converting APP_SERVER_PORT into the nested key server.port.
type EnvSource struct {
	prefix string
}

// NewEnvSource returns an EnvSource that only considers environment
// variables starting with prefix; the prefix itself is stripped before the
// remaining name is lowercased and split on underscores.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

func (e *EnvSource) Load(_ context.Context) (map[string]any, error) {
	var lines []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, e.prefix) {
			continue
		}
		lines = append(lines, strings.TrimPrefix(kv, e.prefix))
	}

	var out map[string]any
	if err := (envVarCodec{}).Decode([]byte(strings.Join(lines, "\n")), &out); err != nil {
		return nil, fmt.Errorf("rconfig: decode environment: %w", err)
	}
	return out, nil
}
