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

import (
	"encoding/binary"
	"errors"
	"io"
)

// maxTraversalWords bounds the total words a single message may occupy,
// mirroring capnp's default traversal limit (64 MiB worth of words) so that
// a hostile or runaway sender trips Overloaded rather than exhausting memory.
const maxTraversalWords = 8 * 1024 * 1024

// frameMessage writes the single-segment framing header and segment bytes
// capnp::serialize::write_message produces for a one-segment message.
func frameMessage(segWords []uint64) []byte {
	segBytes := make([]byte, len(segWords)*8)
	for i, w := range segWords {
		binary.LittleEndian.PutUint64(segBytes[i*8:i*8+8], w)
	}

	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], 0) // segCount - 1 == 0
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(segWords)))

	return append(header, segBytes...)
}

// readMessageBytes reads one framed message (header + segments) from r,
// returning the first segment's words. Multi-segment messages are rejected
// as unimplemented: the record schema this codec serves never needs one.
func readMessageBytes(r io.Reader) (segment, error) {
	var countWord [4]byte

	if _, err := io.ReadFull(r, countWord[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return segment{}, ErrDisconnected
		}

		return segment{}, ErrFailed
	}

	segCount := binary.LittleEndian.Uint32(countWord[:]) + 1
	if segCount == 0 || segCount > 1024 {
		return segment{}, ErrFailed
	}

	sizesBuf := make([]byte, int(segCount)*4)
	if _, err := io.ReadFull(r, sizesBuf); err != nil {
		return segment{}, ErrFailed
	}

	sizes := make([]uint32, segCount)

	var totalWords uint64

	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(sizesBuf[i*4 : i*4+4])
		totalWords += uint64(sizes[i])
	}

	if totalWords > maxTraversalWords {
		return segment{}, ErrOverloaded
	}

	if segCount > 1 {
		return segment{}, ErrUnimplemented
	}

	// header (4 + segCount*4 bytes) is padded to an 8-byte boundary.
	headerLen := 4 + int(segCount)*4
	if pad := headerLen % 8; pad != 0 {
		padBuf := make([]byte, 8-pad)
		if _, err := io.ReadFull(r, padBuf); err != nil {
			return segment{}, ErrFailed
		}
	}

	segBuf := make([]byte, int(sizes[0])*8)
	if _, err := io.ReadFull(r, segBuf); err != nil {
		return segment{}, ErrFailed
	}

	return segmentFromBytes(segBuf), nil
}
