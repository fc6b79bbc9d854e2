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

func TestGelfDecodeKnownFields(t *testing.T) {
	t.Parallel()

	d := gelfDecoder{}

	rec, err := d.Decode([]byte(`{
		"version": "1.1",
		"host": "example.org",
		"short_message": "A short message",
		"full_message": "Backtrace here",
		"timestamp": 1385053862.3072,
		"level": 1,
		"application_name": "myapp",
		"process_id": "42"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "example.org", rec.Hostname)
	require.NotNil(t, rec.Msg)
	assert.Equal(t, "A short message", *rec.Msg)
	require.NotNil(t, rec.FullMsg)
	assert.Equal(t, "Backtrace here", *rec.FullMsg)
	require.NotNil(t, rec.Severity)
	assert.EqualValues(t, 1, *rec.Severity)
	require.NotNil(t, rec.Appname)
	assert.Equal(t, "myapp", *rec.Appname)
	require.NotNil(t, rec.Procid)
	assert.Equal(t, "42", *rec.Procid)
	assert.Nil(t, rec.SD)
}

func TestGelfDecodeExtraFieldsBecomeSD(t *testing.T) {
	t.Parallel()

	d := gelfDecoder{}

	rec, err := d.Decode([]byte(`{
		"host": "example.org",
		"short_message": "msg",
		"timestamp": 1385053862.3072,
		"_foo": "bar",
		"_count": 3
	}`))
	require.NoError(t, err)

	require.NotNil(t, rec.SD)
	assert.Equal(t, "gelf", *rec.SD.SDID)
	assert.Len(t, rec.SD.Pairs, 2)

	found := map[string]bool{}
	for _, p := range rec.SD.Pairs {
		found[p.Name] = true
	}

	assert.True(t, found["_foo"])
	assert.True(t, found["_count"])
}

func TestGelfDecodeInvalidJSON(t *testing.T) {
	t.Parallel()

	d := gelfDecoder{}

	_, err := d.Decode([]byte(`not json`))
	assert.Error(t, err)
}
