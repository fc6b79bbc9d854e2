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
	"fmt"
	"strings"
	"time"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/record"
)

const (
	defaultFacility uint8 = 1 // user-level messages
	defaultSeverity uint8 = 5 // notice
)

func pri(rec *record.Record) int {
	facility := defaultFacility
	if rec.Facility != nil {
		facility = *rec.Facility
	}

	severity := defaultSeverity
	if rec.Severity != nil {
		severity = *rec.Severity
	}

	return int(facility)*8 + int(severity)
}

// rfc3164Encoder writes classic BSD syslog: <PRI>Mmm dd hh:mm:ss hostname tag[pid]: msg.
type rfc3164Encoder struct{}

func newRFC3164Encoder(*config.Config) (Encoder, error) {
	return rfc3164Encoder{}, nil
}

func (rfc3164Encoder) Encode(rec *record.Record) ([]byte, error) {
	ts := time.Unix(0, int64(rec.Ts*float64(time.Second)))

	tag := "flowgger"
	if rec.Appname != nil {
		tag = *rec.Appname
	}

	if rec.Procid != nil {
		tag = fmt.Sprintf("%s[%s]", tag, *rec.Procid)
	}

	msg := ""
	if rec.Msg != nil {
		msg = *rec.Msg
	} else if rec.FullMsg != nil {
		msg = *rec.FullMsg
	}

	out := fmt.Sprintf("<%d>%s %s %s: %s", pri(rec), ts.Format("Jan _2 15:04:05"), rec.Hostname, tag, msg)

	return []byte(out), nil
}

// rfc5424Encoder writes IETF syslog per RFC5424: <PRI>VERSION TIMESTAMP
// HOSTNAME APP-NAME PROCID MSGID [SD] MSG.
type rfc5424Encoder struct{}

func newRFC5424Encoder(*config.Config) (Encoder, error) {
	return rfc5424Encoder{}, nil
}

func (rfc5424Encoder) Encode(rec *record.Record) ([]byte, error) {
	ts := time.Unix(0, int64(rec.Ts*float64(time.Second))).UTC()

	appname := dashIfNil(rec.Appname)
	procid := dashIfNil(rec.Procid)
	msgid := dashIfNil(rec.Msgid)

	msg := ""
	if rec.Msg != nil {
		msg = *rec.Msg
	} else if rec.FullMsg != nil {
		msg = *rec.FullMsg
	}

	sd := "-"
	if rec.SD != nil {
		sd = encodeSDElement(rec.SD)
	}

	out := fmt.Sprintf("<%d>1 %s %s %s %s %s %s %s",
		pri(rec), ts.Format(time.RFC3339Nano), hostnameOrDash(rec.Hostname), appname, procid, msgid, sd, msg)

	return []byte(out), nil
}

func dashIfNil(s *string) string {
	if s == nil {
		return "-"
	}

	return *s
}

func hostnameOrDash(h string) string {
	if h == "" {
		return "-"
	}

	return h
}

func encodeSDElement(sd *record.StructuredData) string {
	id := "flowgger"
	if sd.SDID != nil {
		id = *sd.SDID
	}

	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(id)

	for _, p := range sd.Pairs {
		b.WriteByte(' ')
		b.WriteString(p.Name)
		b.WriteString(`="`)
		b.WriteString(strings.NewReplacer(`"`, `\"`, `\`, `\\`, "]", `\]`).Replace(sdValueToLTSVString(p.Value)))
		b.WriteString(`"`)
	}

	b.WriteByte(']')

	return b.String()
}
