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

package pipeline

import (
	"bytes"
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/output"
	"github.com/cdumay/flowgger/internal/testutil"
)

func writeTempConfig(t *testing.T, contents string) *config.Config {
	t.Helper()

	path := t.TempDir() + "/flowgger.toml"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	return cfg
}

func TestBuildUnknownInputType(t *testing.T) {
	t.Parallel()

	cfg := writeTempConfig(t, `
[input]
type = "bogus"
format = "syslog-rfc3164"
framing = "line"

[output]
type = "debug"
format = "passthrough"
`)

	_, err := Build(cfg, testutil.Logger(t), nil)
	assert.Error(t, err)
}

func TestBuildAndRunUDPToDebug(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := pc.LocalAddr().String()
	pc.Close()

	cfg := writeTempConfig(t, `
[input]
listen = "`+addr+`"
type = "udp"
format = "syslog-rfc3164"
framing = "line"

[output]
type = "debug"
format = "syslog-rfc3164"
`)

	p, err := Build(cfg, testutil.Logger(t), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	p.out = &output.DebugOutput{W: &buf}

	ctx, cancel := context.WithTimeout(testutil.Ctx(t), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)

	_, err = conn.Write([]byte("<34>Oct 11 22:14:15 myhost su[123]: 'su root' failed"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return buf.Len() > 0
	}, time.Second, 10*time.Millisecond)

	assert.Contains(t, buf.String(), "su root")

	cancel()
	<-done
}
