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

// Package merger wraps an already-encoded payload with the framing a stream
// output needs to delimit one record from the next, symmetric with
// internal/splitter on the input side.
package merger

import (
	"encoding/binary"
	"fmt"

	"github.com/cdumay/flowgger/internal/errkind"
)

// Merger frames a single encoded payload for a stream sink.
type Merger interface {
	Merge(payload []byte) []byte
}

var registry = map[string]func() Merger{
	"len-prefix":     func() Merger { return lenPrefixMerger{} },
	"nul":            func() Merger { return nulMerger{} },
	"line":           func() Merger { return lineMerger{} },
	"syslog-framing": func() Merger { return syslogFramingMerger{} },
}

// New looks up the Merger registered under kind.
func New(kind string) (Merger, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, errkind.New(errkind.Config, "merger: unknown framing %q", kind)
	}

	return ctor(), nil
}

// lenPrefixMerger prepends a 4-byte big-endian length, chosen for output
// framing over decimal RFC6587 framing since it's unambiguous and cheap for
// a downstream reader to parse without scanning for a delimiter byte.
type lenPrefixMerger struct{}

func (lenPrefixMerger) Merge(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)

	return out
}

// nulMerger appends a NUL terminator.
type nulMerger struct{}

func (nulMerger) Merge(payload []byte) []byte {
	return append(append([]byte{}, payload...), 0)
}

// lineMerger appends a newline.
type lineMerger struct{}

func (lineMerger) Merge(payload []byte) []byte {
	return append(append([]byte{}, payload...), '\n')
}

// syslogFramingMerger prefixes a decimal ASCII length and a single space,
// symmetric with the RFC6587 octet-counting splitter.
type syslogFramingMerger struct{}

func (syslogFramingMerger) Merge(payload []byte) []byte {
	prefix := fmt.Sprintf("%d ", len(payload))

	return append([]byte(prefix), payload...)
}
