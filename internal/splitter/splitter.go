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

// Package splitter extracts record-sized byte chunks from a buffered stream,
// one framing discipline per Splitter implementation.
package splitter

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/cdumay/flowgger/internal/errkind"
)

// Splitter reads one frame's raw bytes from r. It returns a Disconnected-kind
// error wrapping io.EOF once the stream is cleanly exhausted between frames.
type Splitter interface {
	Next(r *bufio.Reader) ([]byte, error)
}

// Registry maps input.framing config values to constructors, mirroring the
// pipeline's other per-kind factory registries.
var registry = map[string]func() Splitter{
	"line":           func() Splitter { return lineSplitter{} },
	"nul":            func() Splitter { return nulSplitter{} },
	"syslog-framing": func() Splitter { return syslogFramingSplitter{} },
}

// New looks up the Splitter registered under kind.
func New(kind string) (Splitter, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, errkind.New(errkind.Config, "splitter: unknown framing %q", kind)
	}

	return ctor(), nil
}

// lineSplitter frames on '\n', trimming a trailing '\r'.
type lineSplitter struct{}

func (lineSplitter) Next(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, mapEOF(err)
		}
		// a final, unterminated line is still a frame.
	} else {
		line = line[:len(line)-1]
	}

	line = bytes.TrimSuffix(line, []byte{'\r'})

	return line, nil
}

// nulSplitter frames on '\x00'.
type nulSplitter struct{}

func (nulSplitter) Next(r *bufio.Reader) ([]byte, error) {
	frame, err := r.ReadBytes(0)
	if err != nil {
		if len(frame) == 0 {
			return nil, mapEOF(err)
		}

		return frame, nil
	}

	return frame[:len(frame)-1], nil
}

// syslogFramingSplitter implements RFC6587 octet-counting: a decimal ASCII
// length, a single space, then exactly that many payload bytes.
type syslogFramingSplitter struct{}

func (syslogFramingSplitter) Next(r *bufio.Reader) ([]byte, error) {
	lenBytes, err := r.ReadBytes(' ')
	if err != nil {
		if len(lenBytes) == 0 {
			return nil, mapEOF(err)
		}

		return nil, errkind.New(errkind.Framing, "syslog-framing: truncated length prefix")
	}

	lenStr := string(lenBytes[:len(lenBytes)-1])

	n, err := strconv.Atoi(lenStr)
	if err != nil || n < 0 {
		return nil, errkind.New(errkind.Framing, "syslog-framing: invalid length prefix %q", lenStr)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, errkind.New(errkind.Framing, "syslog-framing: short frame: %s", err)
	}

	return frame, nil
}

// mapEOF classifies an io.Reader error as Disconnected (clean close) or
// Framing (anything else).
func mapEOF(err error) error {
	if err == io.EOF {
		return errkind.Wrap(errkind.Disconnected, err)
	}

	return errkind.Wrap(errkind.Framing, err)
}
