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

package encoder

import (
	"github.com/cdumay/flowgger/internal/capnpwire"
	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/record"
)

// capnpEncoder re-serializes a Record as a framed Cap'n Proto message,
// symmetric with the capnp decoder/splitter.
type capnpEncoder struct{}

func newCapnpEncoder(*config.Config) (Encoder, error) {
	return capnpEncoder{}, nil
}

func (capnpEncoder) Encode(rec *record.Record) ([]byte, error) {
	return capnpwire.EncodeRecord(rec)
}
