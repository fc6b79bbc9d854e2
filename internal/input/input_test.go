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

package input

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdumay/flowgger/internal/splitter"
	"github.com/cdumay/flowgger/internal/testutil"
)

func TestUDPInputDispatchesDatagrams(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testutil.Ctx(t))

	var mu sync.Mutex

	var got [][]byte

	u := &UDPInput{
		Addr: "127.0.0.1:0",
		Handle: func(_ context.Context, frame []byte) error {
			mu.Lock()
			defer mu.Unlock()

			got = append(got, frame)

			return nil
		},
		L: testutil.Logger(t),
	}

	pc, err := net.ListenPacket("udp", u.Addr)
	require.NoError(t, err)

	u.Addr = pc.LocalAddr().String()
	pc.Close()

	go func() { _ = u.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("udp", u.Addr)
	require.NoError(t, err)

	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "hello", string(got[0]))
	mu.Unlock()

	cancel()
}

func TestStreamInputDispatchesFrames(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testutil.Ctx(t))

	var mu sync.Mutex

	var got []string

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := lis.Addr().String()
	lis.Close()

	s := &StreamInput{
		Addr:        addr,
		NewSplitter: func() splitter.Splitter { sp, _ := splitter.New("line"); return sp },
		Handle: func(_ context.Context, frame []byte) error {
			mu.Lock()
			defer mu.Unlock()

			got = append(got, string(frame))

			return nil
		},
		L: testutil.Logger(t),
	}

	go func() { _ = s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	_, err = conn.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, got)
	mu.Unlock()

	conn.Close()
	cancel()
}
