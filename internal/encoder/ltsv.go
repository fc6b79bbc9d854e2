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
	"strconv"
	"strings"
	"time"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/record"
)

// ltsvEncoder writes Labeled Tab-Separated Values, symmetric with the LTSV
// decoder: host, time, message, appname, procid, msgid, then one label per
// structured-data pair.
type ltsvEncoder struct {
	timeLayout string
}

func newLTSVEncoder(cfg *config.Config) (Encoder, error) {
	return &ltsvEncoder{
		timeLayout: cfg.StringDefault("ltsv.time_layout", time.RFC3339),
	}, nil
}

func (e *ltsvEncoder) Encode(rec *record.Record) ([]byte, error) {
	var b strings.Builder

	writeLabel := func(label, value string) {
		if b.Len() > 0 {
			b.WriteByte('\t')
		}

		b.WriteString(label)
		b.WriteByte(':')
		b.WriteString(value)
	}

	writeLabel("host", rec.Hostname)
	writeLabel("time", time.Unix(0, int64(rec.Ts*float64(time.Second))).UTC().Format(e.timeLayout))

	if rec.Msg != nil {
		writeLabel("message", *rec.Msg)
	}

	if rec.Appname != nil {
		writeLabel("appname", *rec.Appname)
	}

	if rec.Procid != nil {
		writeLabel("procid", *rec.Procid)
	}

	if rec.Msgid != nil {
		writeLabel("msgid", *rec.Msgid)
	}

	if rec.SD != nil {
		for _, p := range rec.SD.Pairs {
			writeLabel(p.Name, sdValueToLTSVString(p.Value))
		}
	}

	return []byte(b.String()), nil
}

func sdValueToLTSVString(v record.SDValue) string {
	switch v.Kind {
	case record.SDString:
		return v.String()
	case record.SDBool:
		return strconv.FormatBool(v.Bool())
	case record.SDF64:
		return strconv.FormatFloat(v.F64(), 'g', -1, 64)
	case record.SDI64:
		return strconv.FormatInt(v.I64(), 10)
	case record.SDU64:
		return strconv.FormatUint(v.U64(), 10)
	case record.SDNull:
		return ""
	default:
		return ""
	}
}
