// Copyright 2025 madder Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2025, time.July, 16, 14, 30, 0, 0, time.UTC) // Wednesday, summer

func testArm() Arm {
	return Arm{
		Id:         "starry-night",
		ArtistId:   "vincent",
		Medium:     "painting",
		Genre:      "landscape",
		Price:      2500,
		Popularity: 0.9,
		Recency:    0.4,
	}
}

func testContext() Context {
	ctx := NewContext("alice")
	ctx.Timestamp = testTime
	ctx.Budget = 5000
	ctx.SessionDuration = 15 * time.Minute
	return ctx
}

func TestExtractDeterminism(t *testing.T) {
	e := NewExtractor()
	first := e.Extract(testArm(), testContext())
	second := e.Extract(testArm(), testContext())
	assert.Equal(t, first, second)
}

func TestExtractDimension(t *testing.T) {
	e := NewExtractor()
	assert.Len(t, e.Extract(testArm(), testContext()), FeatureDimension)
	assert.Len(t, e.Extract(Arm{}, Context{}), FeatureDimension)
	assert.Equal(t, FeatureDimension, e.Dimension())
	assert.Equal(t, FeatureSchemaVersion, e.Version())
}

func TestExtractSlots(t *testing.T) {
	e := NewExtractor()
	x := e.Extract(testArm(), testContext())
	assert.InDelta(t, math.Log1p(2500)/math.Log1p(maxPrice), x[slotPrice], 1e-9)
	assert.InDelta(t, 0.5, x[slotBudget], 1e-9) // 2500 / 5000
	assert.InDelta(t, 14.0/23, x[slotHour], 1e-9)
	assert.InDelta(t, 3.0/6, x[slotWeekday], 1e-9)
	assert.InDelta(t, 2.0/3, x[slotSeason], 1e-9)
	assert.Equal(t, 1.0, x[slotMedium])   // painting is the first medium
	assert.Equal(t, 1.0, x[slotGenre+2])  // landscape is the third genre
	assert.Equal(t, 0.9, x[slotPopularity])
	assert.Equal(t, 0.4, x[slotRecency])
	assert.InDelta(t, 0.25, x[slotSession], 1e-9) // 15 of 60 minutes
	assert.Equal(t, 0.0, x[slotMobile])
}

func TestExtractUnknownCategories(t *testing.T) {
	e := NewExtractor()
	arm := testArm()
	arm.Medium = "fresco"
	arm.Genre = "brutalism"
	x := e.Extract(arm, testContext())
	for i := 0; i < len(Mediums); i++ {
		assert.Zero(t, x[slotMedium+i])
	}
	for i := 0; i < len(Genres); i++ {
		assert.Zero(t, x[slotGenre+i])
	}
}

func TestExtractNeutralBudget(t *testing.T) {
	e := NewExtractor()
	ctx := testContext()
	ctx.Budget = 0
	x := e.Extract(testArm(), ctx)
	assert.Equal(t, 0.5, x[slotBudget])
	// an expensive item under a known budget saturates at one
	ctx.Budget = 100
	x = e.Extract(testArm(), ctx)
	assert.Equal(t, 1.0, x[slotBudget])
}

func TestExtractCoercesMalformedMetadata(t *testing.T) {
	e := NewExtractor()
	arm := testArm()
	arm.Price = -50
	arm.Popularity = 7
	arm.Recency = -1
	x := e.Extract(arm, testContext())
	assert.Zero(t, x[slotPrice])
	assert.Equal(t, 1.0, x[slotPopularity])
	assert.Zero(t, x[slotRecency])
}

func TestExtractDeviceFlag(t *testing.T) {
	e := NewExtractor()
	ctx := testContext()
	ctx.Device = "mobile"
	assert.Equal(t, 1.0, e.Extract(testArm(), ctx)[slotMobile])
	ctx.Device = "tablet"
	assert.Equal(t, 0.0, e.Extract(testArm(), ctx)[slotMobile])
}

func TestSeason(t *testing.T) {
	assert.Equal(t, 0, season(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, season(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, season(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, season(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, season(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)))
}
