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

package splitter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cdumay/flowgger/internal/capnpwire"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/logging"
	"github.com/cdumay/flowgger/internal/record"
)

// overloadedRetryDelay is how long CapnpHandler.Run sleeps before retrying a
// message rejected with ErrOverloaded, matching the original splitter's
// fixed backpressure pause.
const overloadedRetryDelay = 250 * time.Millisecond

// CapnpHandler drives a Cap'n Proto connection end to end: it decodes
// messages directly off the wire, encodes them for output, and hands the
// result to Enqueue, bypassing the generic Decoder/Encoder-per-frame split
// the other framings use. The Cap'n Proto error kinds map onto connection
// lifecycle decisions the other splitters don't need to make.
type CapnpHandler struct {
	Encode  func(*record.Record) ([]byte, error)
	Enqueue func(context.Context, []byte) error
	L       *slog.Logger
}

// Run decodes and forwards messages from r until the connection is closed
// or a fatal error occurs.
func (h *CapnpHandler) Run(ctx context.Context, r io.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		rec, err := capnpwire.ReadMessage(r)

		switch {
		case errors.Is(err, capnpwire.ErrDisconnected):
			h.L.DebugContext(ctx, "capnp connection closed")
			return nil

		case errors.Is(err, capnpwire.ErrFailed):
			h.L.ErrorContext(ctx, "capnp message failed", logging.Error(err))
			return err

		case errors.Is(err, capnpwire.ErrUnimplemented):
			h.L.ErrorContext(ctx, "capnp message uses an unimplemented feature", logging.Error(err))
			return err

		case errors.Is(err, capnpwire.ErrOverloaded):
			h.L.WarnContext(ctx, "capnp message exceeds traversal limit, retrying", "delay", overloadedRetryDelay)

			select {
			case <-time.After(overloadedRetryDelay):
				continue
			case <-ctx.Done():
				return nil
			}

		case errkind.Is(err, errkind.Decode):
			// a malformed record (e.g. missing timestamp/hostname) is
			// skipped, not connection-fatal: the handle_message contract
			// only terminates on Failed/Unimplemented.
			h.L.WarnContext(ctx, "dropping capnp record: decode error", logging.Error(err))
			continue

		case err != nil:
			h.L.ErrorContext(ctx, "capnp decode error", logging.Error(err))
			return err
		}

		out, err := h.Encode(rec)
		if err != nil {
			h.L.WarnContext(ctx, "dropping capnp record: encode failed", logging.Error(err))
			continue
		}

		if err := h.Enqueue(ctx, out); err != nil {
			return err
		}
	}
}
