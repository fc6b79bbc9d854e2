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

// Package compress auto-detects and decompresses the zlib/gzip framing that
// UDP datagram inputs optionally carry.
package compress

import (
	"bytes"
	"compress/zlib"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/cdumay/flowgger/internal/errkind"
)

// MaxUDPPacketSize is the largest UDP datagram the datagram input accepts.
const MaxUDPPacketSize = 65527

// MaxCompressionRatio bounds the pre-sized decompression output buffer,
// guarding against decompression-bomb datagrams.
const MaxCompressionRatio = 5

const maxExpandedSize = MaxUDPPacketSize * MaxCompressionRatio

// Decode inspects buf's magic prefix and returns the decompressed payload
// (or buf itself, unmodified, if it looks like plaintext). The result is
// always validated as UTF-8, matching the original handle_record's blanket
// validation of every datagram, compressed or not.
func Decode(buf []byte) ([]byte, error) {
	switch {
	case isZlib(buf):
		out, err := inflate(zlibReader, buf)
		if err != nil {
			return nil, errkind.New(errkind.Decode, "Corrupted compressed (zlib) record: %s", err)
		}

		return validateUTF8(out)

	case isGzip(buf):
		out, err := inflate(gzipReader, buf)
		if err != nil {
			return nil, errkind.New(errkind.Decode, "Corrupted compressed (gzip) record: %s", err)
		}

		return validateUTF8(out)

	default:
		return validateUTF8(buf)
	}
}

func isZlib(buf []byte) bool {
	if len(buf) < 8 || buf[0] != 0x78 {
		return false
	}

	switch buf[1] {
	case 0x01, 0x9c, 0xda:
		return true
	default:
		return false
	}
}

func isGzip(buf []byte) bool {
	return len(buf) >= 24 && buf[0] == 0x1f && buf[1] == 0x8b && buf[2] == 0x08
}

func zlibReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

func gzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func inflate(newReader func(io.Reader) (io.ReadCloser, error), buf []byte) ([]byte, error) {
	zr, err := newReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}

	defer zr.Close() //nolint:errcheck // decompression error already surfaced via Read

	lr := io.LimitReader(zr, maxExpandedSize+1)

	out, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}

	if len(out) > maxExpandedSize {
		return nil, errkind.New(errkind.Decode, "decompressed record exceeds %d bytes", maxExpandedSize)
	}

	return out, nil
}

func validateUTF8(buf []byte) ([]byte, error) {
	if !utf8.Valid(buf) {
		return nil, errkind.New(errkind.Decode, "Invalid UTF-8 input")
	}

	return buf, nil
}
