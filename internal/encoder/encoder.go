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

// Package encoder serializes a canonical Record into the bytes an Output
// sink writes, one wire format per Encoder implementation.
package encoder

import (
	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// Encoder serializes a Record. Implementations must not mutate rec.
type Encoder interface {
	Encode(rec *record.Record) ([]byte, error)
}

// New builds the Encoder registered under cfg's output.format key.
func New(cfg *config.Config) (Encoder, error) {
	kind, err := cfg.RequireString("output.format")
	if err != nil {
		return nil, err
	}

	ctor, ok := registry[kind]
	if !ok {
		return nil, errkind.New(errkind.Config, "encoder: unknown format %q", kind)
	}

	return ctor(cfg)
}

var registry = map[string]func(*config.Config) (Encoder, error){
	"gelf":          newGelfEncoder,
	"ltsv":          newLTSVEncoder,
	"syslog-rfc3164": newRFC3164Encoder,
	"syslog-rfc5424": newRFC5424Encoder,
	"capnp":          newCapnpEncoder,
	"passthrough":    newPassthroughEncoder,
}
