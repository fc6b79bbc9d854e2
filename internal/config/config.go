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

// Package config provides a read-only, strictly typed view over a
// TOML configuration file, the single source of truth every pipeline
// component is built from.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cdumay/flowgger/internal/errkind"
)

// Config is an immutable, dotted-key view over a decoded TOML document.
// It is never mutated after Load returns.
type Config struct {
	raw  map[string]any
	meta toml.MetaData
}

// Load reads and decodes the TOML file at path.
func Load(path string) (*Config, error) {
	var raw map[string]any

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, errkind.New(errkind.Config, "config: decode %s: %s", path, err)
	}

	return &Config{raw: raw, meta: meta}, nil
}

// navigate walks a dotted key path ("input.listen") down nested tables,
// returning the leaf value and whether every segment was found.
func (c *Config) navigate(key string) (any, bool) {
	segs := splitKey(key)

	var cur any = c.raw

	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}

		cur, ok = m[s]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

func splitKey(key string) []string {
	var segs []string

	start := 0

	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			segs = append(segs, key[start:i])
			start = i + 1
		}
	}

	return append(segs, key[start:])
}

// String returns the string at key and whether it was present and a string.
func (c *Config) String(key string) (string, bool) {
	v, ok := c.navigate(key)
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	return s, ok
}

// StringDefault returns the string at key, or def if absent.
func (c *Config) StringDefault(key, def string) string {
	if s, ok := c.String(key); ok {
		return s
	}

	return def
}

// RequireString returns the string at key, or a Config error if it is
// missing or not a string.
func (c *Config) RequireString(key string) (string, error) {
	s, ok := c.String(key)
	if !ok {
		return "", errkind.New(errkind.Config, "config: missing or non-string key %q", key)
	}

	return s, nil
}

// IntDefault returns the integer at key, or def if absent. TOML decodes
// bare integers as int64, so both are accepted.
func (c *Config) IntDefault(key string, def int) int {
	v, ok := c.navigate(key)
	if !ok {
		return def
	}

	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

// DurationDefault returns the duration at key, parsed with
// time.ParseDuration, or def if absent or unparsable.
func (c *Config) DurationDefault(key string, def time.Duration) time.Duration {
	s, ok := c.String(key)
	if !ok {
		return def
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}

	return d
}

// StringMapPair is one entry of an ordered string-keyed table.
type StringMapPair struct {
	Key   string
	Value string
}

// OrderedStringMap returns the string-valued table at key, in the order the
// keys appear in the source file, using the decoder's metadata (TOML tables
// have no inherent order otherwise).
func (c *Config) OrderedStringMap(key string) ([]StringMapPair, error) {
	v, ok := c.navigate(key)
	if !ok {
		return nil, nil
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, errkind.New(errkind.Config, "config: key %q is not a table", key)
	}

	var pairs []StringMapPair

	prefix := splitKey(key)

	for _, mk := range c.meta.Keys() {
		ks := []string(mk)
		if !keyHasPrefix(ks, prefix) || len(ks) != len(prefix)+1 {
			continue
		}

		name := ks[len(ks)-1]

		raw, ok := m[name]
		if !ok {
			continue
		}

		s, ok := raw.(string)
		if !ok {
			return nil, errkind.New(errkind.Config, "config: key %q.%q is not a string", key, name)
		}

		pairs = append(pairs, StringMapPair{Key: name, Value: s})
	}

	return pairs, nil
}

func keyHasPrefix(ks, prefix []string) bool {
	if len(ks) < len(prefix) {
		return false
	}

	for i, p := range prefix {
		if ks[i] != p {
			return false
		}
	}

	return true
}

// StringMapDefault flattens OrderedStringMap into a plain map, for callers
// that do not care about order (e.g. Kafka client options).
func (c *Config) StringMapDefault(key string) map[string]string {
	pairs, err := c.OrderedStringMap(key)
	if err != nil || len(pairs) == 0 {
		return nil
	}

	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.Key] = p.Value
	}

	return out
}

// Int32 returns v as an int32, erroring if it overflows.
func Int32(v int) (int32, error) {
	if v > 1<<31-1 || v < -(1<<31) {
		return 0, fmt.Errorf("value %d does not fit in int32", v)
	}

	return int32(v), nil
}

// ParseBool parses a config value given as a string ("true", "false", "1",
// "0", ...) using strconv.ParseBool.
func ParseBool(s string) (bool, error) {
	return strconv.ParseBool(s)
}
