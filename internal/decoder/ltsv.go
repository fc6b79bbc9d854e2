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
	"strings"
	"time"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// ltsvDecoder parses Labeled Tab-Separated Values: "label1:val1\tlabel2:val2...".
// Recognized labels populate Record fields directly; every other label
// becomes a structured-data pair under sd_id "ltsv", its name prefixed with
// an underscore if it does not already have one.
type ltsvDecoder struct {
	timeLayout string
}

func newLTSVDecoder(cfg *config.Config) (Decoder, error) {
	return &ltsvDecoder{timeLayout: cfg.StringDefault("ltsv.time_layout", time.RFC3339)}, nil
}

func (d *ltsvDecoder) Decode(payload []byte) (*record.Record, error) {
	rec := &record.Record{}

	var pairs []record.Pair

	for _, field := range strings.Split(string(payload), "\t") {
		label, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}

		switch label {
		case "host":
			rec.Hostname = value
		case "time":
			ts, err := time.Parse(d.timeLayout, value)
			if err != nil {
				return nil, errkind.New(errkind.Decode, "ltsv: invalid time %q: %s", value, err)
			}

			rec.Ts = float64(ts.UnixNano()) / float64(time.Second)
		case "message":
			rec.Msg = record.Str(value)
		case "appname":
			rec.Appname = record.Str(value)
		case "procid":
			rec.Procid = record.Str(value)
		case "msgid":
			rec.Msgid = record.Str(value)
		default:
			pairs = append(pairs, record.Pair{Name: record.EnsureUnderscore(label), Value: record.NewSDString(value)})
		}
	}

	if len(pairs) > 0 {
		rec.SD = &record.StructuredData{SDID: record.Str("ltsv"), Pairs: pairs}
	}

	if !rec.Valid() {
		return nil, errkind.New(errkind.Decode, "ltsv: invalid record")
	}

	return rec, nil
}
