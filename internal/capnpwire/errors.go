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

package capnpwire

import "errors"

// These sentinel errors mirror the four capnp::ErrorKind variants the
// original splitter switches on. ReadMessage returns one of these (wrapped)
// whenever it cannot complete a message read.
var (
	// ErrFailed is a corrupt or malformed message: bad segment table, a
	// pointer pointing outside its segment, and similar unrecoverable cases.
	ErrFailed = errors.New("capnpwire: message framing failed")

	// ErrUnimplemented is a wire feature this codec does not support (far
	// pointers, capability pointers, multi-segment messages for decode).
	ErrUnimplemented = errors.New("capnpwire: unimplemented wire feature")

	// ErrOverloaded is a message exceeding the traversal/word-count limit;
	// callers should back off and retry rather than drop the connection.
	ErrOverloaded = errors.New("capnpwire: message exceeds traversal limit")

	// ErrDisconnected is a clean EOF between messages (no bytes of a new
	// message header were read), i.e. the peer has gone idle or closed.
	ErrDisconnected = errors.New("capnpwire: disconnected")
)
