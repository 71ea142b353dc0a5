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
)

// FileSource loads configuration from either a filesystem path or raw byte
// content, decoded through the given Decoder.
type FileSource struct {
	path    string
	data    []byte
	decoder Decoder
}

// NewFileSource reads path when Load is called.
func NewFileSource(path string, decoder Decoder) *FileSource {
	return &FileSource{path: path, decoder: decoder}
}

// NewFileContentSource decodes data directly, without touching the
// filesystem — useful for embedded or dynamically generated configuration.
func NewFileContentSource(data []byte, decoder Decoder) *FileSource {
	return &FileSource{data: data, decoder: decoder}
}

func (f *FileSource) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		data, err = os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("rconfig: read file %q: %w", f.path, err)
		}
	}

	var out map[string]any
	if err := f.decoder.Decode(data, &out); err != nil {
		return nil, fmt.Errorf("rconfig: decode %q: %w", f.path, err)
	}
	return out, nil
}
