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
	"time"
)

// FeatureSchemaVersion pins the feature layout below. Adding a medium or
// genre changes the meaning of slots, so any change here must bump the
// version, which invalidates persisted models.
const FeatureSchemaVersion = 1

// FeatureDimension is the length of every feature vector.
const FeatureDimension = 20

// Feature slot layout. One-hot ranges are half-open.
const (
	slotPrice      = 0
	slotBudget     = 1
	slotHour       = 2
	slotWeekday    = 3
	slotSeason     = 4
	slotMedium     = 5  // 6 slots
	slotGenre      = 11 // 5 slots
	slotPopularity = 16
	slotRecency    = 17
	slotSession    = 18
	slotMobile     = 19
)

// Mediums and Genres are the versioned one-hot vocabularies. Order is
// part of the schema; unknown values leave their range at zero.
var (
	Mediums = []string{"painting", "sculpture", "photography", "digital", "print", "drawing"}
	Genres  = []string{"abstract", "figurative", "landscape", "portrait", "conceptual"}
)

// maxPrice caps the log-compressed price slot at one.
const maxPrice = 1e6

// Arm is a candidate artwork handed to the recommender. It is a
// read-only view over the catalog, never owned by the engine.
type Arm struct {
	Id         string   `json:"id"`
	ArtistId   string   `json:"artist_id"`
	Medium     string   `json:"medium"`
	Genre      string   `json:"genre"`
	Price      float64  `json:"price"`
	Colors     []string `json:"colors"`
	Popularity float64  `json:"popularity"`
	Recency    float64  `json:"recency"`
}

// Context is the ambient state of one recommendation or feedback request.
// It is transient; only its derived features reach storage.
type Context struct {
	UserId        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
	RecentItems   []string  `json:"recent_items"`
	RecentQueries []string  `json:"recent_queries"`
	// Budget is the price ceiling of the user; zero or negative means unknown.
	Budget          float64       `json:"budget"`
	SessionDuration time.Duration `json:"session_duration"`
	Device          string        `json:"device"`
}

// NewContext returns a context with safe neutral defaults for a user.
func NewContext(userId string) Context {
	return Context{
		UserId:    userId,
		Timestamp: time.Now(),
		Device:    "desktop",
	}
}

// Extractor converts (arm, context) pairs into fixed-length feature
// vectors. It is pure: same inputs, same vector, no I/O.
type Extractor struct {
	mediumIndex map[string]int
	genreIndex  map[string]int
}

func NewExtractor() *Extractor {
	e := &Extractor{
		mediumIndex: make(map[string]int),
		genreIndex:  make(map[string]int),
	}
	for i, medium := range Mediums {
		e.mediumIndex[medium] = slotMedium + i
	}
	for i, genre := range Genres {
		e.genreIndex[genre] = slotGenre + i
	}
	return e
}

func (e *Extractor) Dimension() int {
	return FeatureDimension
}

func (e *Extractor) Version() int {
	return FeatureSchemaVersion
}

// Extract builds the feature vector of an arm under a context. Malformed
// metadata is coerced to neutral values so one bad arm cannot block a
// whole candidate batch.
func (e *Extractor) Extract(arm Arm, ctx Context) []float64 {
	x := make([]float64, FeatureDimension)
	price := math.Max(arm.Price, 0)
	x[slotPrice] = clamp01(math.Log1p(price) / math.Log1p(maxPrice))
	if ctx.Budget > 0 {
		x[slotBudget] = clamp01(price / ctx.Budget)
	} else {
		// unknown budget must not read as "fits the budget"
		x[slotBudget] = 0.5
	}
	x[slotHour] = float64(ctx.Timestamp.Hour()) / 23
	x[slotWeekday] = float64(ctx.Timestamp.Weekday()) / 6
	x[slotSeason] = float64(season(ctx.Timestamp)) / 3
	if slot, exist := e.mediumIndex[arm.Medium]; exist {
		x[slot] = 1
	}
	if slot, exist := e.genreIndex[arm.Genre]; exist {
		x[slot] = 1
	}
	x[slotPopularity] = clamp01(arm.Popularity)
	x[slotRecency] = clamp01(arm.Recency)
	x[slotSession] = clamp01(ctx.SessionDuration.Minutes() / 60)
	if ctx.Device == "mobile" {
		x[slotMobile] = 1
	}
	return x
}

// season returns 0..3 for winter, spring, summer, autumn.
func season(t time.Time) int {
	switch t.Month() {
	case time.December, time.January, time.February:
		return 0
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	default:
		return 3
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
