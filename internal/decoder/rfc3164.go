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
	"strconv"
	"strings"
	"time"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// rfc3164Decoder parses classic BSD syslog: <PRI>Mmm dd hh:mm:ss hostname
// tag[pid]: msg. The wire format carries no year or timezone, so the
// decoder anchors both to clock, an injectable source of "now" (time.Now by
// default) evaluated once per record, matching historical BSD syslogd
// behavior.
type rfc3164Decoder struct {
	clock func() time.Time
}

func newRFC3164Decoder(*config.Config) (Decoder, error) {
	return &rfc3164Decoder{clock: time.Now}, nil
}

const rfc3164TimeLayout = "Jan _2 15:04:05"

func (d *rfc3164Decoder) Decode(payload []byte) (*record.Record, error) {
	s := string(payload)

	if len(s) == 0 || s[0] != '<' {
		return nil, errkind.New(errkind.Decode, "rfc3164: missing PRI")
	}

	end := strings.IndexByte(s, '>')
	if end < 0 {
		return nil, errkind.New(errkind.Decode, "rfc3164: unterminated PRI")
	}

	pri, err := strconv.Atoi(s[1:end])
	if err != nil || pri < 0 {
		return nil, errkind.New(errkind.Decode, "rfc3164: invalid PRI %q", s[1:end])
	}

	rest := s[end+1:]

	if len(rest) < len(rfc3164TimeLayout) {
		return nil, errkind.New(errkind.Decode, "rfc3164: truncated timestamp")
	}

	tsPart, rest := rest[:len(rfc3164TimeLayout)], rest[len(rfc3164TimeLayout):]

	now := d.clock()

	parsed, err := time.Parse(rfc3164TimeLayout, tsPart)
	if err != nil {
		return nil, errkind.New(errkind.Decode, "rfc3164: invalid timestamp %q: %s", tsPart, err)
	}

	ts := time.Date(now.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), 0, now.Location())

	rest = strings.TrimPrefix(rest, " ")

	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return nil, errkind.New(errkind.Decode, "rfc3164: missing hostname")
	}

	hostname := rest[:sp]
	rest = rest[sp+1:]

	tag, msg := splitTagMessage(rest)

	rec := &record.Record{
		Ts:       float64(ts.UnixNano()) / float64(time.Second),
		Hostname: hostname,
		Facility: record.ClampFacility(uint8(pri / 8)),
		Severity: record.ClampSeverity(uint8(pri % 8)),
		Msg:      record.Str(msg),
	}

	if appname, procid, ok := splitTagPid(tag); ok {
		rec.Appname = record.Str(appname)
		rec.Procid = record.Str(procid)
	} else if tag != "" {
		rec.Appname = record.Str(tag)
	}

	if !rec.Valid() {
		return nil, errkind.New(errkind.Decode, "rfc3164: invalid record")
	}

	return rec, nil
}

// splitTagMessage splits "tag[pid]: message" (or "tag: message") on the
// first ": ".
func splitTagMessage(s string) (tag, msg string) {
	idx := strings.Index(s, ": ")
	if idx < 0 {
		return "", s
	}

	return s[:idx], s[idx+2:]
}

// splitTagPid splits "tag[pid]" into its parts.
func splitTagPid(tag string) (appname, procid string, ok bool) {
	open := strings.IndexByte(tag, '[')
	if open < 0 || !strings.HasSuffix(tag, "]") {
		return "", "", false
	}

	return tag[:open], tag[open+1 : len(tag)-1], true
}
