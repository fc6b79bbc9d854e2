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

package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTs(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidTs(1.5))
	assert.False(t, ValidTs(0))
	assert.False(t, ValidTs(-1))
	assert.False(t, ValidTs(math.NaN()))
	assert.False(t, ValidTs(math.Inf(1)))
	assert.False(t, ValidTs(math.Inf(-1)))
}

func TestRecordValid(t *testing.T) {
	t.Parallel()

	r := &Record{Ts: 1.5, Hostname: "h"}
	assert.True(t, r.Valid())

	r.Hostname = ""
	assert.False(t, r.Valid())

	r.Hostname = "h"
	r.Ts = 0
	assert.False(t, r.Valid())

	assert.False(t, (*Record)(nil).Valid())
}

func TestClampFacility(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0), *ClampFacility(0))
	assert.Equal(t, uint8(FacilityMax), *ClampFacility(FacilityMax))
	assert.Nil(t, ClampFacility(FacilityMax+1))
}

func TestClampSeverity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0), *ClampSeverity(0))
	assert.Equal(t, uint8(SeverityMax), *ClampSeverity(SeverityMax))
	assert.Nil(t, ClampSeverity(SeverityMax+1))
}

func TestEnsureUnderscore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "_env", EnsureUnderscore("env"))
	assert.Equal(t, "_env", EnsureUnderscore("_env"))
}
