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
	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// passthroughEncoder emits the Record's Msg bytes unchanged and fails when
// Msg is unset.
type passthroughEncoder struct{}

func newPassthroughEncoder(*config.Config) (Encoder, error) {
	return passthroughEncoder{}, nil
}

func (passthroughEncoder) Encode(rec *record.Record) ([]byte, error) {
	if rec.Msg == nil {
		return nil, errkind.New(errkind.Encode, "passthrough: record has no message payload")
	}

	return []byte(*rec.Msg), nil
}
