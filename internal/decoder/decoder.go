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

// Package decoder parses wire-format bytes into the canonical Record, one
// grammar per Decoder implementation.
package decoder

import (
	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// Decoder parses payload, a single record-sized frame already extracted by
// a Splitter, into a canonical Record.
type Decoder interface {
	Decode(payload []byte) (*record.Record, error)
}

// New builds the Decoder registered under cfg's input.format key.
func New(cfg *config.Config) (Decoder, error) {
	kind, err := cfg.RequireString("input.format")
	if err != nil {
		return nil, err
	}

	ctor, ok := registry[kind]
	if !ok {
		return nil, errkind.New(errkind.Config, "decoder: unknown format %q", kind)
	}

	return ctor(cfg)
}

var registry = map[string]func(*config.Config) (Decoder, error){
	"syslog-rfc3164": newRFC3164Decoder,
	"syslog-rfc5424": newRFC5424Decoder,
	"gelf":           newGelfDecoder,
	"ltsv":           newLTSVDecoder,
	"capnp":          newCapnpDecoder,
}
