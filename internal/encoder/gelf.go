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
	"bytes"
	"encoding/json"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// gelfEncoder emits a GELF 1.1 JSON object with a fixed field insertion
// order, matching the original encoder byte for byte in structure.
type gelfEncoder struct {
	defaultMessage string
	extra          []config.StringMapPair
}

func newGelfEncoder(cfg *config.Config) (Encoder, error) {
	extra, err := cfg.OrderedStringMap("output.gelf_extra")
	if err != nil {
		return nil, err
	}

	return &gelfEncoder{
		defaultMessage: cfg.StringDefault("output.gelf_default_message", "-"),
		extra:          extra,
	}, nil
}

type jsonField struct {
	key   string
	value any
}

func (e *gelfEncoder) Encode(rec *record.Record) ([]byte, error) {
	host := rec.Hostname
	if host == "" {
		host = "unknown"
	}

	shortMessage := e.defaultMessage
	if rec.Msg != nil {
		shortMessage = *rec.Msg
	}

	fields := []jsonField{
		{"version", "1.1"},
		{"host", host},
		{"short_message", shortMessage},
		{"timestamp", rec.Ts},
	}

	if rec.Severity != nil {
		fields = append(fields, jsonField{"level", uint64(*rec.Severity)})
	}

	if rec.FullMsg != nil {
		fields = append(fields, jsonField{"full_message", *rec.FullMsg})
	}

	if rec.Appname != nil {
		fields = append(fields, jsonField{"application_name", *rec.Appname})
	}

	if rec.Procid != nil {
		fields = append(fields, jsonField{"process_id", *rec.Procid})
	}

	for _, kv := range e.extra {
		fields = append(fields, jsonField{kv.Key, kv.Value})
	}

	if rec.SD != nil {
		if rec.SD.SDID != nil {
			fields = append(fields, jsonField{"sd_id", *rec.SD.SDID})
		}

		for _, p := range rec.SD.Pairs {
			fields = append(fields, jsonField{record.EnsureUnderscore(p.Name), sdValueToJSON(p.Value)})
		}
	}

	out, err := marshalOrdered(fields)
	if err != nil {
		return nil, errkind.New(errkind.Encode, "Unable to serialize to JSON")
	}

	return out, nil
}

func sdValueToJSON(v record.SDValue) any {
	switch v.Kind {
	case record.SDString:
		return v.String()
	case record.SDBool:
		return v.Bool()
	case record.SDF64:
		return v.F64()
	case record.SDI64:
		return v.I64()
	case record.SDU64:
		return v.U64()
	case record.SDNull:
		return nil
	default:
		return nil
	}
}

// marshalOrdered renders fields as a single JSON object, preserving
// insertion order (the thing encoding/json's map-based marshaling cannot
// do, and the thing GELF's field contract depends on). Duplicate keys
// resolve last-write-wins, since later writes simply overwrite earlier
// bytes' effect on any JSON-parsing reader (the original accepts this too).
func marshalOrdered(fields []jsonField) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}

		buf.Write(vb)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
