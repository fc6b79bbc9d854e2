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

// Package output drains encoded (and optionally merged) payloads from the
// queue and writes them to a sink: a TCP/TLS stream, a Kafka topic, or
// stdout for local runs and tests.
package output

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/cdumay/flowgger/internal/ctxutil"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/logging"
)

// RecvFunc pulls the next payload from the queue. ok is false once the
// queue is closed and drained; err signals a ctx cancellation.
type RecvFunc func(ctx context.Context) (payload []byte, ok bool, err error)

// Sink drains payloads via recv until ctx is done or the queue is closed.
type Sink interface {
	Run(ctx context.Context, recv RecvFunc) error
}

// StreamOutput writes merged payloads to a TCP/TLS connection, reconnecting
// with jittered exponential backoff (internal/ctxutil) on write failure.
type StreamOutput struct {
	Addr         string
	TLS          *tls.Config
	Merge        func([]byte) []byte
	BackoffCeil  time.Duration
	L            *slog.Logger
}

func (o *StreamOutput) dial() (net.Conn, error) {
	if o.TLS != nil {
		return tls.Dial("tcp", o.Addr, o.TLS)
	}

	return net.Dial("tcp", o.Addr)
}

func (o *StreamOutput) connect(ctx context.Context) (net.Conn, error) {
	var retry int64

	for {
		conn, err := o.dial()
		if err == nil {
			return conn, nil
		}

		o.L.WarnContext(ctx, "stream output connect failed, retrying", logging.Error(err))

		retry++

		d := ctxutil.DurationWithJitter(o.BackoffCeil, retry)

		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (o *StreamOutput) Run(ctx context.Context, recv RecvFunc) error {
	conn, err := o.connect(ctx)
	if err != nil {
		return nil //nolint:nilerr // context cancellation during connect is a clean shutdown
	}

	defer conn.Close()

	for {
		payload, ok, err := recv(ctx)
		if err != nil {
			return nil //nolint:nilerr // context cancellation is a clean shutdown
		}

		if !ok {
			return nil
		}

		if o.Merge != nil {
			payload = o.Merge(payload)
		}

		if _, err := conn.Write(payload); err != nil {
			o.L.WarnContext(ctx, "stream output write failed, reconnecting", logging.Error(err))

			conn.Close()

			conn, err = o.connect(ctx)
			if err != nil {
				return nil //nolint:nilerr // context cancellation during reconnect is a clean shutdown
			}
		}
	}
}

// DebugOutput writes newline-delimited payloads to w, for tests and local
// runs where a real sink would be overkill.
type DebugOutput struct {
	W interface {
		Write(p []byte) (int, error)
	}
}

func (o *DebugOutput) Run(ctx context.Context, recv RecvFunc) error {
	for {
		payload, ok, err := recv(ctx)
		if err != nil {
			return nil //nolint:nilerr // context cancellation is a clean shutdown
		}

		if !ok {
			return nil
		}

		if _, err := o.W.Write(append(append([]byte{}, payload...), '\n')); err != nil {
			return errkind.Wrap(errkind.Transport, err)
		}
	}
}
