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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_LoadFromPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\nname: test\n"), 0o644))

	src := NewFileSource(path, yamlCodec{})
	conf, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8080, conf["port"])
	assert.Equal(t, "test", conf["name"])
}

func TestFileSource_LoadFromContent(t *testing.T) {
	t.Parallel()
	src := NewFileContentSource([]byte(`{"a": {"b": 1}}`), jsonCodec{})
	conf, err := src.Load(context.Background())
	require.NoError(t, err)
	nested, ok := conf["a"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 1, nested["b"], 0)
}

func TestFileSource_LoadMissingFileErrors(t *testing.T) {
	t.Parallel()
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml"), yamlCodec{})
	_, err := src.Load(context.Background())
	require.Error(t, err)
}
