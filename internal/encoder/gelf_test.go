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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdumay/flowgger/internal/record"
)

func TestGelfEncodeMinimal(t *testing.T) {
	t.Parallel()

	e := &gelfEncoder{defaultMessage: "-"}

	rec := &record.Record{
		Ts:       1385053862.3072,
		Hostname: "example.org",
		Msg:      record.Str("A short message"),
	}

	out, err := e.Encode(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "1.1", got["version"])
	assert.Equal(t, "example.org", got["host"])
	assert.Equal(t, "A short message", got["short_message"])
	assert.EqualValues(t, 1385053862.3072, got["timestamp"])
	assert.NotContains(t, got, "level")
	assert.NotContains(t, got, "full_message")
}

func TestGelfEncodeEmptyHostnameAndUnsetMessage(t *testing.T) {
	t.Parallel()

	e := &gelfEncoder{defaultMessage: "-"}

	rec := &record.Record{Ts: 1385053862.3072}

	out, err := e.Encode(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "unknown", got["host"])
	assert.Equal(t, "-", got["short_message"])
}

func TestGelfEncodeExtras(t *testing.T) {
	t.Parallel()

	e := &gelfEncoder{
		defaultMessage: "-",
		extra:          nil,
	}

	rec := &record.Record{
		Ts:       1385053862.3072,
		Hostname: "example.org",
		Msg:      record.Str("msg"),
		SD: &record.StructuredData{
			SDID: record.Str("custom"),
			Pairs: []record.Pair{
				{Name: "_foo", Value: record.NewSDString("bar")},
				{Name: "_count", Value: record.NewSDI64(3)},
			},
		},
	}

	out, err := e.Encode(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "custom", got["sd_id"])
	assert.Equal(t, "bar", got["_foo"])
	assert.EqualValues(t, 3, got["_count"])
}

func TestGelfEncodeFieldOrder(t *testing.T) {
	t.Parallel()

	e := &gelfEncoder{defaultMessage: "-"}

	sev := uint8(1)
	rec := &record.Record{
		Ts:       1385053862.3072,
		Hostname: "example.org",
		Msg:      record.Str("msg"),
		FullMsg:  record.Str("full"),
		Severity: &sev,
		Appname:  record.Str("myapp"),
		Procid:   record.Str("42"),
	}

	out, err := e.Encode(rec)
	require.NoError(t, err)

	s := string(out)
	idxVersion := indexOf(s, `"version"`)
	idxHost := indexOf(s, `"host"`)
	idxShort := indexOf(s, `"short_message"`)
	idxTs := indexOf(s, `"timestamp"`)
	idxLevel := indexOf(s, `"level"`)
	idxFull := indexOf(s, `"full_message"`)
	idxApp := indexOf(s, `"application_name"`)
	idxProc := indexOf(s, `"process_id"`)

	assert.True(t, idxVersion < idxHost)
	assert.True(t, idxHost < idxShort)
	assert.True(t, idxShort < idxTs)
	assert.True(t, idxTs < idxLevel)
	assert.True(t, idxLevel < idxFull)
	assert.True(t, idxFull < idxApp)
	assert.True(t, idxApp < idxProc)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}

	return -1
}
