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

// Package linucb implements the per-user linear contextual bandit model.
//
// The model assumes the reward of an arm is linear in its feature vector.
// For each user it maintains the design matrix A (identity plus the sum of
// outer products of observed features), the reward-weighted vector b, the
// ridge estimate theta = A^-1 b and the cached inverse of A. Scoring
// returns both the expected reward theta.x and the confidence width
// sqrt(x A^-1 x) used by the upper-confidence-bound policy.
package linucb

import (
	"math"
	"time"

	"github.com/juju/errors"
	"github.com/madder-io/madder/base/json"
	"github.com/madder-io/madder/base/linalg"
)

// DefaultRefreshPeriod is the number of rank-one inverse updates between
// full Gauss-Jordan re-inversions. Sherman-Morrison keeps each update at
// O(d^2) while the periodic re-inversion bounds floating-point drift.
const DefaultRefreshPeriod = 64

var (
	// ErrSchemaMismatch is returned when a persisted model was built with a
	// different feature dimension or vocabulary version.
	ErrSchemaMismatch = errors.New("model schema mismatch")
)

// Model is the LinUCB state of a single user.
type Model struct {
	Dimension    int         `json:"dimension"`
	Version      int         `json:"version"`
	A            [][]float64 `json:"a"`
	B            []float64   `json:"b"`
	Theta        []float64   `json:"theta"`
	AInv         [][]float64 `json:"a_inv"`
	Updates      int64       `json:"updates"`
	RefreshEvery int64       `json:"refresh_every"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// New creates an untrained model: A and its inverse start at identity,
// b and theta at zero. An untrained model scores every arm with zero
// expected reward, so ranking falls back to pure uncertainty.
func New(dimension, version int) *Model {
	return &Model{
		Dimension:    dimension,
		Version:      version,
		A:            linalg.Eye(dimension),
		B:            make([]float64, dimension),
		Theta:        make([]float64, dimension),
		AInv:         linalg.Eye(dimension),
		RefreshEvery: DefaultRefreshPeriod,
	}
}

// Score returns the expected reward theta.x and the confidence width
// sqrt(x A^-1 x) for a feature vector. The quadratic form is clamped at
// zero before the square root since the cached inverse may carry small
// negative floating-point error.
func (m *Model) Score(x []float64) (expected, uncertainty float64, err error) {
	if len(x) != m.Dimension {
		return 0, 0, errors.Annotatef(linalg.ErrDimensionMismatch, "score: %d != %d", len(x), m.Dimension)
	}
	expected, err = linalg.Dot(m.Theta, x)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	u, err := linalg.MulVec(m.AInv, x)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	quad, err := linalg.Dot(x, u)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	uncertainty = math.Sqrt(math.Max(0, quad))
	return expected, uncertainty, nil
}

// Update applies the rank-one LinUCB update for an observed feature
// vector and reward:
//
//	A += x x^T
//	b += r x
//	theta = A^-1 b
//
// The inverse is maintained incrementally by Sherman-Morrison and rebuilt
// from scratch every RefreshEvery updates. The model is left untouched
// when the feature vector does not match its dimension.
func (m *Model) Update(x []float64, reward float64) error {
	if len(x) != m.Dimension {
		return errors.Annotatef(linalg.ErrDimensionMismatch, "update: %d != %d", len(x), m.Dimension)
	}
	if err := linalg.AddMat(m.A, linalg.Outer(x, x)); err != nil {
		return errors.Trace(err)
	}
	if err := linalg.AddVec(m.B, x, reward); err != nil {
		return errors.Trace(err)
	}
	m.Updates++
	refresh := m.RefreshEvery
	if refresh <= 0 {
		refresh = DefaultRefreshPeriod
	}
	if m.Updates%refresh == 0 {
		if err := m.refreshInverse(); err != nil {
			return errors.Trace(err)
		}
	} else {
		inv, err := linalg.ShermanMorrison(m.AInv, x)
		if err != nil {
			// fall back to a full re-inversion
			if err = m.refreshInverse(); err != nil {
				return errors.Trace(err)
			}
		} else {
			m.AInv = inv
		}
	}
	theta, err := linalg.MulVec(m.AInv, m.B)
	if err != nil {
		return errors.Trace(err)
	}
	m.Theta = theta
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Model) refreshInverse() error {
	inv, err := linalg.Inverse(m.A)
	if err != nil && !errors.Is(err, linalg.ErrIllConditioned) {
		return errors.Trace(err)
	}
	// an ill-conditioned partial inverse still beats a stale one; A is
	// identity plus outer products so this path is theoretical
	m.AInv = inv
	return nil
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	ret := *m
	ret.A = linalg.Clone(m.A)
	ret.AInv = linalg.Clone(m.AInv)
	ret.B = append([]float64(nil), m.B...)
	ret.Theta = append([]float64(nil), m.Theta...)
	return &ret
}

// Marshal encodes the model as JSON for persistence.
func (m *Model) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	return data, errors.Trace(err)
}

// Decode parses a persisted model and verifies it matches the expected
// feature dimension and vocabulary version. A model trained under a
// different schema must not be scored against current feature vectors.
func Decode(data []byte, dimension, version int) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Trace(err)
	}
	if m.Dimension != dimension || m.Version != version {
		return nil, errors.Annotatef(ErrSchemaMismatch,
			"persisted dimension %d version %d, expected dimension %d version %d",
			m.Dimension, m.Version, dimension, version)
	}
	return &m, nil
}
