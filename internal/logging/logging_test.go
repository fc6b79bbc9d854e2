// Copyright 2021 FerretDB Inc.
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

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, &NewHandlerOpts{Base: "json", Level: slog.LevelInfo}))

	WithName(l, "splitter.line").InfoContext(context.Background(), "hello")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "splitter.line", m["name"])
	assert.Equal(t, "hello", m["msg"])
}

func TestError(t *testing.T) {
	t.Parallel()

	attr := Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.Any().(error).Error())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]slog.Level{
		"trace": LevelTrace,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"fatal": LevelFatal,
	} {
		lvl, err := ParseLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, lvl, s)
	}

	_, err := ParseLevel("not-a-level")
	assert.Error(t, err)
}

func TestNewHandlerConsoleTimeTruncation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewHandler(&buf, &NewHandlerOpts{Level: slog.LevelInfo})
	l := slog.New(h)

	l.InfoContext(context.Background(), "hi")
	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z `, buf.String())
	assert.Contains(t, buf.String(), "msg=hi")
}
