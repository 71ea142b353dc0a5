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
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a codec by name.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatEnvVar Format = "env_var"
)

// Decoder parses encoded configuration bytes into a map[string]any.
type Decoder interface {
	Decode(data []byte, v *map[string]any) error
}

// Encoder serializes a configuration map for Dump.
type Encoder interface {
	Encode(v map[string]any) ([]byte, error)
}

var extensionFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// detectFormat infers a codec Format from a file's extension, trimmed to
// the two formats this runtime ships a codec for (no TOML source exists
// in this framework's scope, see DESIGN.md).
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}
	return "", fmt.Errorf("cannot detect format from extension %q; use WithFileAs to specify the format explicitly", ext)
}

func decoderFor(format Format) (Decoder, error) {
	switch format {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	case FormatEnvVar:
		return envVarCodec{}, nil
	default:
		return nil, fmt.Errorf("no decoder registered for format %q", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Decode(data []byte, v *map[string]any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Encode(v map[string]any) ([]byte, error)     { return json.MarshalIndent(v, "", "  ") }

// yamlCodec wraps gopkg.in/yaml.v3, a direct requirement in go.mod that no
// other package in this module imports — see DESIGN.md for why this package
// reaches for that rather than adding a second YAML library.
type yamlCodec struct{}

func (yamlCodec) Decode(data []byte, v *map[string]any) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) Encode(v map[string]any) ([]byte, error)     { return yaml.Marshal(v) }

// envVarCodec decodes newline-separated KEY=VALUE pairs (as produced by
// EnvSource) into a nested map, splitting each key on underscores.
type envVarCodec struct{}

func (envVarCodec) Decode(data []byte, v *map[string]any) error {
	conf := make(map[string]any)

	for _, line := range bytes.Split(data, []byte("\n")) {
		pair := bytes.SplitN(line, []byte("="), 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(string(pair[0]))
		if key == "" {
			continue
		}

		var parts []string
		for _, part := range strings.Split(strings.ToLower(key), "_") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(string(pair[1]))
	}

	*v = conf
	return nil
}

func (envVarCodec) Encode(map[string]any) ([]byte, error) {
	return nil, fmt.Errorf("encoding to environment variables is not supported")
}
