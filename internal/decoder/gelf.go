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
	"encoding/json"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// gelfDecoder parses a GELF 1.1 JSON object, the reverse of the GELF
// encoder: known fields populate Record directly, every other key becomes
// a structured-data pair under sd_id "gelf".
type gelfDecoder struct{}

func newGelfDecoder(*config.Config) (Decoder, error) {
	return gelfDecoder{}, nil
}

var gelfKnownFields = map[string]bool{
	"version": true, "host": true, "short_message": true, "timestamp": true,
	"level": true, "full_message": true, "application_name": true, "process_id": true,
}

func (gelfDecoder) Decode(payload []byte) (*record.Record, error) {
	var m map[string]any

	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, errkind.New(errkind.Decode, "gelf: invalid JSON: %s", err)
	}

	rec := &record.Record{}

	if host, ok := m["host"].(string); ok {
		rec.Hostname = host
	}

	if ts, ok := m["timestamp"].(float64); ok {
		rec.Ts = ts
	}

	if sm, ok := m["short_message"].(string); ok {
		rec.Msg = record.Str(sm)
	}

	if fm, ok := m["full_message"].(string); ok {
		rec.FullMsg = record.Str(fm)
	}

	if an, ok := m["application_name"].(string); ok {
		rec.Appname = record.Str(an)
	}

	if pid, ok := m["process_id"].(string); ok {
		rec.Procid = record.Str(pid)
	}

	if lvl, ok := m["level"].(float64); ok {
		rec.Severity = record.ClampSeverity(uint8(lvl))
	}

	var pairs []record.Pair

	for k, v := range m {
		if gelfKnownFields[k] {
			continue
		}

		pairs = append(pairs, record.Pair{Name: k, Value: jsonValueToSD(v)})
	}

	if len(pairs) > 0 {
		rec.SD = &record.StructuredData{SDID: record.Str("gelf"), Pairs: pairs}
	}

	if !rec.Valid() {
		return nil, errkind.New(errkind.Decode, "gelf: invalid record")
	}

	return rec, nil
}

func jsonValueToSD(v any) record.SDValue {
	switch x := v.(type) {
	case string:
		return record.NewSDString(x)
	case bool:
		return record.NewSDBool(x)
	case float64:
		return record.NewSDF64(x)
	case nil:
		return record.NewSDNull()
	default:
		return record.NewSDNull()
	}
}
