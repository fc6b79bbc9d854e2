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

package output

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdumay/flowgger/internal/testutil"
)

func recvFromSlice(payloads [][]byte) RecvFunc {
	i := 0

	return func(ctx context.Context) ([]byte, bool, error) {
		if i >= len(payloads) {
			return nil, false, nil
		}

		p := payloads[i]
		i++

		return p, true, nil
	}
}

func TestDebugOutputWritesNewlineDelimited(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	o := &DebugOutput{W: &buf}

	err := o.Run(testutil.Ctx(t), recvFromSlice([][]byte{[]byte("a"), []byte("b")}))
	require.NoError(t, err)

	assert.Equal(t, "a\nb\n", buf.String())
}

func TestStreamOutputWritesToConnection(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer lis.Close()

	received := make(chan []byte, 2)

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}

		defer conn.Close()

		buf := make([]byte, 64)

		for {
			n, err := conn.Read(buf)
			if n > 0 {
				got := make([]byte, n)
				copy(got, buf[:n])
				received <- got
			}

			if err != nil {
				return
			}
		}
	}()

	o := &StreamOutput{
		Addr:        lis.Addr().String(),
		BackoffCeil: 100 * time.Millisecond,
		L:           testutil.Logger(t),
	}

	ctx, cancel := context.WithTimeout(testutil.Ctx(t), 2*time.Second)
	defer cancel()

	err = o.Run(ctx, recvFromSlice([][]byte{[]byte("hello")}))
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "hello", string(got))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write")
	}
}
