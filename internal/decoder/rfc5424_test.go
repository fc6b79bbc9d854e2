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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRFC5424DecodeMinimal(t *testing.T) {
	t.Parallel()

	d := rfc5424Decoder{}

	rec, err := d.Decode([]byte(`<165>1 2003-10-11T22:14:15.003Z mymachine.example.com evntslog - ID47 - An application event log entry`))
	require.NoError(t, err)

	assert.Equal(t, "mymachine.example.com", rec.Hostname)
	require.NotNil(t, rec.Appname)
	assert.Equal(t, "evntslog", *rec.Appname)
	assert.Nil(t, rec.Procid)
	require.NotNil(t, rec.Msgid)
	assert.Equal(t, "ID47", *rec.Msgid)
	assert.Nil(t, rec.SD)
	require.NotNil(t, rec.Msg)
	assert.Equal(t, "An application event log entry", *rec.Msg)
}

func TestRFC5424DecodeWithSD(t *testing.T) {
	t.Parallel()

	d := rfc5424Decoder{}

	rec, err := d.Decode([]byte(`<165>1 2003-10-11T22:14:15.003Z mymachine.example.com evntslog 1234 ID47 [exampleSDID@32473 iut="3" eventSource="Application"] An application event log entry`))
	require.NoError(t, err)

	require.NotNil(t, rec.Procid)
	assert.Equal(t, "1234", *rec.Procid)
	require.NotNil(t, rec.SD)
	assert.Equal(t, "exampleSDID@32473", *rec.SD.SDID)
	require.Len(t, rec.SD.Pairs, 2)
	assert.Equal(t, "iut", rec.SD.Pairs[0].Name)
	assert.Equal(t, "3", rec.SD.Pairs[0].Value.String())
	assert.Equal(t, "Application", rec.SD.Pairs[1].Value.String())
	assert.Equal(t, "An application event log entry", *rec.Msg)
}

func TestRFC5424DecodeMalformedSDPairDoesNotPanic(t *testing.T) {
	t.Parallel()

	d := rfc5424Decoder{}

	rec, err := d.Decode([]byte(`<165>1 2003-10-11T22:14:15.003Z mymachine.example.com evntslog - ID47 [id x=] trailing message`))
	require.NoError(t, err)

	require.NotNil(t, rec.SD)
	assert.Equal(t, "id", *rec.SD.SDID)
	assert.Empty(t, rec.SD.Pairs)
}

func TestRFC5424DecodeNoSD(t *testing.T) {
	t.Parallel()

	d := rfc5424Decoder{}

	rec, err := d.Decode([]byte(`<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - - - 'su root' failed`))
	require.NoError(t, err)

	assert.Nil(t, rec.SD)
	assert.Equal(t, "'su root' failed", *rec.Msg)
}
