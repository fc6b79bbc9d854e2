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

// Package testutil provides helpers shared by this project's tests.
package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cdumay/flowgger/internal/logging"
)

// Logger returns a logger that writes to t.Log, named after the running test.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()

	h := logging.NewHandler(testWriter{t}, &logging.NewHandlerOpts{Base: "console", Level: logging.LevelTrace})

	return logging.WithName(slog.New(h), t.Name())
}

// testWriter adapts testing.TB.Log to io.Writer.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Logf("%s", p)

	return len(p), nil
}

// Ctx returns a context for the running test. It is canceled when the test
// (and any of its subtests) completes.
func Ctx(t testing.TB) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}
