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
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "default config"},
		{name: "json handler", opts: []Option{WithJSONHandler()}},
		{name: "text handler", opts: []Option{WithTextHandler()}},
		{name: "console handler", opts: []Option{WithConsoleHandler()}},
		{name: "debug level", opts: []Option{WithDebugLevel()}},
		{name: "service info", opts: []Option{
			WithServiceName("svc"), WithServiceVersion("v1.0.0"), WithEnvironment("test"),
		}},
		{name: "source", opts: []Option{WithSource(true)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := New(tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, c.Logger())
		})
	}
}

func TestNewIgnoresEmptyServiceName(t *testing.T) {
	t.Parallel()
	_, err := New(WithServiceName(""), WithOutput(new(bytes.Buffer)))
	require.NoError(t, err) // empty name is ignored, default retained
}

func TestNewRejectsNilOutput(t *testing.T) {
	t.Parallel()
	_, err := New(WithOutput(nil))
	require.Error(t, err)
}

func TestNewRejectsNilCustomLogger(t *testing.T) {
	t.Parallel()
	_, err := New(WithCustomLogger(nil))
	require.ErrorIs(t, err, ErrNilLogger)
}

func TestJSONOutputIncludesServiceFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf), WithServiceName("orders"), WithServiceVersion("1.2.3"), WithEnvironment("prod"))

	c.Info("started", "port", 8080)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "orders", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "prod", entry["env"])
	assert.Equal(t, float64(8080), entry["port"])
}

func TestReplaceAttrRedactsSensitiveFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf))

	c.Info("login", "password", "hunter2", "user", "alice")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***REDACTED***", entry["password"])
	assert.Equal(t, "alice", entry["user"])
}

func TestDebugBelowLevelIsDropped(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf), WithLevel(LevelInfo))

	c.Debug("should not appear")
	assert.Empty(t, buf.String())
}

func TestSamplingDropsAfterInitial(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf), WithSampling(SamplingConfig{Initial: 1, Thereafter: 0}))

	for range 5 {
		c.Info("tick")
	}

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 1, lines)
}

func TestSamplingNeverDropsErrors(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf), WithSampling(SamplingConfig{Initial: 0, Thereafter: 1000}))

	for range 5 {
		c.Error("boom")
	}

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 5, lines)
}

func TestSetLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf), WithLevel(LevelInfo))

	require.NoError(t, c.SetLevel(LevelDebug))
	c.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetLevelRejectedOnCustomLogger(t *testing.T) {
	t.Parallel()
	c := MustNew(WithCustomLogger(MustNew().Logger()))
	assert.ErrorIs(t, c.SetLevel(LevelDebug), ErrCannotChangeLevel)
}

func TestShutdownStopsLogging(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf))

	require.NoError(t, c.Shutdown())
	assert.False(t, c.IsEnabled())

	c.Info("after shutdown")
	assert.Empty(t, buf.String())
}

func TestLogErrorIncludesErrorField(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf))

	c.LogError(errors.New("db down"), "operation failed", "op", "insert")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "db down", entry["error"])
	assert.Equal(t, "insert", entry["op"])
}

func TestLogDurationIncludesDurationFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf))

	c.LogDuration("done", time.Now().Add(-10*time.Millisecond))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "duration_ms")
	assert.Contains(t, entry, "duration")
}

func TestErrorWithStackIncludesStackWhenRequested(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := MustNew(WithOutput(&buf))

	c.ErrorWithStack("panic recovered", errors.New("boom"), true)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "stack")
}
