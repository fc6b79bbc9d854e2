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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[input]
listen = "0.0.0.0:514"
type = "udp"

[output]
type = "stream"
gelf_default_message = "-"

[output.gelf_extra]
env = "prod"
region = "eu"
az = "1a"

[queue]
capacity = 8192
`

func writeSample(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "flowgger.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	return path
}

func TestLoadAndAccessors(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	listen, err := cfg.RequireString("input.listen")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:514", listen)

	assert.Equal(t, "udp", cfg.StringDefault("input.type", ""))
	assert.Equal(t, "nope", cfg.StringDefault("input.missing", "nope"))

	assert.Equal(t, 8192, cfg.IntDefault("queue.capacity", 4096))
	assert.Equal(t, 4096, cfg.IntDefault("queue.missing", 4096))

	_, err = cfg.RequireString("does.not.exist")
	assert.Error(t, err)

	assert.Equal(t, 30*time.Second, cfg.DurationDefault("output.missing_backoff", 30*time.Second))
}

func TestOrderedStringMapPreservesOrder(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	pairs, err := cfg.OrderedStringMap("output.gelf_extra")
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	assert.Equal(t, []StringMapPair{
		{Key: "env", Value: "prod"},
		{Key: "region", Value: "eu"},
		{Key: "az", Value: "1a"},
	}, pairs)
}

func TestOrderedStringMapMissing(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	pairs, err := cfg.OrderedStringMap("output.librdkafka")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
