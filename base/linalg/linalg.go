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

// Package linalg implements the dense float64 kernels used by the LinUCB
// model: vector products, rank-one updates and Gauss-Jordan inversion.
package linalg

import (
	"math"

	"github.com/juju/errors"
)

// pivotEpsilon is the smallest pivot magnitude Gauss-Jordan elimination
// accepts. Columns without a usable pivot are skipped.
const pivotEpsilon = 1e-10

var (
	// ErrDimensionMismatch is returned when operand shapes disagree.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrIllConditioned is returned together with a partial result when a
	// matrix has no usable pivot in one or more columns. The result is a
	// best-effort inverse, not an exact one.
	ErrIllConditioned = errors.New("matrix is ill-conditioned")
)

// Dot returns the inner product of two vectors.
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Annotatef(ErrDimensionMismatch, "dot: %d != %d", len(a), len(b))
	}
	var ret float64
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret, nil
}

// Outer returns the outer product of two vectors as a len(a) x len(b) matrix.
func Outer(a, b []float64) [][]float64 {
	ret := make([][]float64, len(a))
	for i := range a {
		ret[i] = make([]float64, len(b))
		for j := range b {
			ret[i][j] = a[i] * b[j]
		}
	}
	return ret
}

// AddVec accumulates b (scaled by c) into a in place.
func AddVec(a, b []float64, c float64) error {
	if len(a) != len(b) {
		return errors.Annotatef(ErrDimensionMismatch, "add vec: %d != %d", len(a), len(b))
	}
	for i := range a {
		a[i] += c * b[i]
	}
	return nil
}

// AddMat accumulates b into a in place.
func AddMat(a, b [][]float64) error {
	if len(a) != len(b) {
		return errors.Annotatef(ErrDimensionMismatch, "add mat: %d != %d rows", len(a), len(b))
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return errors.Annotatef(ErrDimensionMismatch, "add mat: row %d: %d != %d", i, len(a[i]), len(b[i]))
		}
		for j := range a[i] {
			a[i][j] += b[i][j]
		}
	}
	return nil
}

// MulVec returns the matrix-vector product m * v.
func MulVec(m [][]float64, v []float64) ([]float64, error) {
	ret := make([]float64, len(m))
	for i := range m {
		if len(m[i]) != len(v) {
			return nil, errors.Annotatef(ErrDimensionMismatch, "mul vec: row %d: %d != %d", i, len(m[i]), len(v))
		}
		for j := range v {
			ret[i] += m[i][j] * v[j]
		}
	}
	return ret, nil
}

// Eye returns the n x n identity matrix.
func Eye(n int) [][]float64 {
	ret := make([][]float64, n)
	for i := range ret {
		ret[i] = make([]float64, n)
		ret[i][i] = 1
	}
	return ret
}

// Clone returns a deep copy of a matrix.
func Clone(m [][]float64) [][]float64 {
	ret := make([][]float64, len(m))
	for i := range m {
		ret[i] = make([]float64, len(m[i]))
		copy(ret[i], m[i])
	}
	return ret
}

// Inverse inverts a square matrix by Gauss-Jordan elimination with partial
// pivoting. Pivots below pivotEpsilon are skipped instead of dividing by a
// vanishing value; if any column had to be skipped the partial result is
// returned together with ErrIllConditioned so the caller can degrade
// confidence instead of failing.
func Inverse(m [][]float64) ([][]float64, error) {
	n := len(m)
	for i := range m {
		if len(m[i]) != n {
			return nil, errors.Annotatef(ErrDimensionMismatch, "inverse: row %d: %d != %d", i, len(m[i]), n)
		}
	}
	a := Clone(m)
	inv := Eye(n)
	degraded := false
	for col := 0; col < n; col++ {
		// partial pivoting: pick the row with the largest magnitude in
		// this column to keep elimination numerically stable
		pivotRow := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivotRow][col]) {
				pivotRow = row
			}
		}
		if math.Abs(a[pivotRow][col]) < pivotEpsilon {
			degraded = true
			continue
		}
		a[col], a[pivotRow] = a[pivotRow], a[col]
		inv[col], inv[pivotRow] = inv[pivotRow], inv[col]
		pivot := a[col][col]
		for j := 0; j < n; j++ {
			a[col][j] /= pivot
			inv[col][j] /= pivot
		}
		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := a[row][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a[row][j] -= factor * a[col][j]
				inv[row][j] -= factor * inv[col][j]
			}
		}
	}
	if degraded {
		return inv, errors.Trace(ErrIllConditioned)
	}
	return inv, nil
}

// ShermanMorrison returns the inverse of (A + x * x^T) given inv = A^-1,
// without re-inverting the full matrix:
//
//	(A + x x^T)^-1 = A^-1 - (A^-1 x)(x^T A^-1) / (1 + x^T A^-1 x)
//
// The denominator is strictly positive for a positive-definite A, so a
// vanishing denominator signals an inconsistent inverse and is rejected.
func ShermanMorrison(inv [][]float64, x []float64) ([][]float64, error) {
	u, err := MulVec(inv, x)
	if err != nil {
		return nil, errors.Trace(err)
	}
	quad, err := Dot(x, u)
	if err != nil {
		return nil, errors.Trace(err)
	}
	denom := 1 + quad
	if math.Abs(denom) < pivotEpsilon {
		return nil, errors.Annotatef(ErrIllConditioned, "sherman-morrison denominator %v", denom)
	}
	n := len(x)
	ret := make([][]float64, n)
	for i := 0; i < n; i++ {
		ret[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			ret[i][j] = inv[i][j] - u[i]*u[j]/denom
		}
	}
	return ret, nil
}
