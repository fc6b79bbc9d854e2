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

// Package input opens the listener a pipeline receives records on: a UDP
// datagram socket or a TCP/TLS stream, handing each framed payload off to a
// caller-supplied handler.
package input

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/cdumay/flowgger/internal/compress"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/logging"
	"github.com/cdumay/flowgger/internal/splitter"
)

// FrameHandler processes one framed, decompressed payload. Errors are
// logged by the caller and do not terminate the connection.
type FrameHandler func(ctx context.Context, frame []byte) error

// Input opens a listener and runs until ctx is canceled.
type Input interface {
	Run(ctx context.Context) error
}

// UDPInput reads datagrams, auto-decompressing each one, and hands the
// result to Handle. Each datagram is already a complete frame.
type UDPInput struct {
	Addr   string
	Handle FrameHandler
	L      *slog.Logger
}

func (u *UDPInput) Run(ctx context.Context) error {
	pc, err := net.ListenPacket("udp", u.Addr)
	if err != nil {
		return errkind.Wrap(errkind.Transport, err)
	}

	u.L.InfoContext(ctx, "listening", "addr", u.Addr, "proto", "udp")

	go func() {
		<-ctx.Done()
		pc.Close()
	}()

	buf := make([]byte, compress.MaxUDPPacketSize)

	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			u.L.WarnContext(ctx, "udp read failed", logging.Error(err))

			continue
		}

		payload, err := compress.Decode(buf[:n])
		if err != nil {
			u.L.WarnContext(ctx, "dropping datagram: decompress failed", logging.Error(err))
			continue
		}

		frame := make([]byte, len(payload))
		copy(frame, payload)

		u.handleDatagram(ctx, frame)
	}
}

// handleDatagram runs Handle for one datagram, recovering from a panic so
// that a single malformed datagram (e.g. a decoder bug tripped by malformed
// structured data) cannot take down the whole input loop, mirroring
// StreamInput.handleConn's per-connection recover.
func (u *UDPInput) handleDatagram(ctx context.Context, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			u.L.ErrorContext(ctx, "datagram handler panicked", "panic", r)
		}
	}()

	if err := u.Handle(ctx, frame); err != nil {
		u.L.WarnContext(ctx, "dropping datagram", logging.Error(err))
	}
}

// StreamInput accepts TCP (optionally TLS) connections and dispatches each
// one to a per-connection goroutine, mirroring the teacher's
// clientconn.Listener accept loop.
type StreamInput struct {
	Addr string
	TLS  *tls.Config

	// NewSplitter constructs a fresh splitter.Splitter for each connection.
	// Leave nil when NewCapnpHandler is set instead.
	NewSplitter func() splitter.Splitter

	// NewCapnpHandler, when set, takes over the connection entirely instead
	// of using NewSplitter+Handle.
	NewCapnpHandler func() *splitter.CapnpHandler

	Handle FrameHandler
	L      *slog.Logger
}

func (s *StreamInput) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errkind.Wrap(errkind.Transport, err)
	}

	if s.TLS != nil {
		lis = tls.NewListener(lis, s.TLS)
	}

	s.L.InfoContext(ctx, "listening", "addr", s.Addr, "proto", "tcp")

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for ctx.Err() == nil {
		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.L.WarnContext(ctx, "accept failed", logging.Error(err))
			time.Sleep(time.Second)

			continue
		}

		go s.handleConn(ctx, conn)
	}

	return nil
}

func (s *StreamInput) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	l := s.L.With("conn", uuid.NewString(), "remote", conn.RemoteAddr().String())

	defer func() {
		if r := recover(); r != nil {
			l.ErrorContext(ctx, "connection panicked", "panic", r)
		}
	}()

	l.DebugContext(ctx, "connection accepted")

	if s.NewCapnpHandler != nil {
		if err := s.NewCapnpHandler().Run(ctx, conn); err != nil {
			l.WarnContext(ctx, "capnp connection stopped", logging.Error(err))
		}

		return
	}

	sp := s.NewSplitter()
	r := bufio.NewReader(conn)

	for {
		frame, err := sp.Next(r)
		if err != nil {
			if errkind.Is(err, errkind.Disconnected) {
				l.DebugContext(ctx, "connection closed")
			} else {
				l.WarnContext(ctx, "connection stopped", logging.Error(err))
			}

			return
		}

		if err := s.Handle(ctx, frame); err != nil {
			l.WarnContext(ctx, "dropping frame", logging.Error(err))
		}
	}
}
