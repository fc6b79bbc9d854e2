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

package decoder

import (
	"github.com/cdumay/flowgger/internal/capnpwire"
	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/record"
)

// capnpDecoder parses an already-framed Cap'n Proto message. Normally the
// Cap'n Proto splitter decodes inline and this path is unused, but it is
// registered so input.format=capnp works when paired with a splitter that
// merely extracts whole messages (e.g. a length-prefixed transport).
type capnpDecoder struct{}

func newCapnpDecoder(*config.Config) (Decoder, error) {
	return capnpDecoder{}, nil
}

func (capnpDecoder) Decode(payload []byte) (*record.Record, error) {
	return capnpwire.DecodeMessage(payload)
}
