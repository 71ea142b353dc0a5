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

package pathspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBracketNormalization(t *testing.T) {
	tpl, err := Parse("/posts/[id]")
	require.NoError(t, err)
	assert.Equal(t, "/posts/:id", tpl.String())

	params, ok := tpl.Match("/posts/42")
	require.True(t, ok)
	assert.Equal(t, "42", params["id"])
}

func TestParseCatchAll(t *testing.T) {
	tpl, err := Parse("/files/[...path]")
	require.NoError(t, err)
	assert.Equal(t, "/files/:path*", tpl.String())

	params, ok := tpl.Match("/files/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "a/b/c", params["path"])
}

func TestParseCatchAllMustBeFinal(t *testing.T) {
	_, err := Parse("/files/[...path]/meta")
	require.Error(t, err)
}

func TestParseDuplicateParamName(t *testing.T) {
	_, err := Parse("/a/:x/:x")
	require.Error(t, err)
}

func TestParseInvalidSegment(t *testing.T) {
	_, err := Parse("/a/b c")
	require.Error(t, err)
}

func TestShapeCollision(t *testing.T) {
	a := MustParse("/a/:x")
	b := MustParse("/a/:y")
	assert.Equal(t, a.Shape(), b.Shape())

	c := MustParse("/a/:x/b")
	assert.NotEqual(t, a.Shape(), c.Shape())
}

func TestMatchMiss(t *testing.T) {
	tpl := MustParse("/posts/:id")
	_, ok := tpl.Match("/posts")
	assert.False(t, ok)
	_, ok = tpl.Match("/posts/1/comments")
	assert.False(t, ok)
}

func TestCompileRoundTrip(t *testing.T) {
	tpl := MustParse("/posts/:id")
	params, ok := tpl.Match("/posts/42")
	require.True(t, ok)

	out, err := tpl.Compile(params)
	require.NoError(t, err)
	assert.Equal(t, "/posts/42", out)
}

func TestCompileMissingParam(t *testing.T) {
	tpl := MustParse("/posts/:id")
	_, err := tpl.Compile(map[string]string{})
	require.Error(t, err)
}

func TestRootTemplate(t *testing.T) {
	tpl := MustParse("/")
	assert.Equal(t, "/", tpl.String())
	params, ok := tpl.Match("/")
	require.True(t, ok)
	assert.Empty(t, params)
}
