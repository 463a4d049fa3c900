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

package model

import (
	"context"
	"sync"
	"testing"

	"github.com/madder-io/madder/base/linalg"
	"github.com/madder-io/madder/model/linucb"
	"github.com/stretchr/testify/assert"
)

var testSchema = Schema{Dimension: 4, Version: 1}

func testLazyCreate(t *testing.T, db Database) {
	ctx := context.Background()
	m, err := db.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, linalg.Eye(4), m.A)
	// idempotent fetch: no intervening reward, bit-identical state
	again, err := db.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, m, again)
}

func testPutGet(t *testing.T, db Database) {
	ctx := context.Background()
	m := testSchema.newModel()
	assert.NoError(t, m.Update([]float64{1, 0, 0, 1}, 0.5))
	assert.NoError(t, db.Put(ctx, "bob", m))
	stored, err := db.Get(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, m.A, stored.A)
	assert.Equal(t, m.B, stored.B)
	assert.Equal(t, m.Theta, stored.Theta)
}

func testUpdateIsolation(t *testing.T, db Database) {
	ctx := context.Background()
	// stored model must not change when the mutation fails
	before, err := db.Get(ctx, "carol")
	assert.NoError(t, err)
	err = db.Update(ctx, "carol", func(m *linucb.Model) error {
		return m.Update([]float64{1, 2}, 1) // wrong dimension
	})
	assert.Error(t, err)
	after, err := db.Get(ctx, "carol")
	assert.NoError(t, err)
	assert.Equal(t, before.A, after.A)
	assert.Equal(t, before.B, after.B)
}

func testConcurrentUpdates(t *testing.T, db Database) {
	ctx := context.Background()
	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		x := make([]float64, 4)
		x[i%4] = 1
		go func(x []float64) {
			defer wg.Done()
			assert.NoError(t, db.Update(ctx, "dave", func(m *linucb.Model) error {
				return m.Update(x, 1)
			}))
		}(x)
	}
	wg.Wait()
	m, err := db.Get(ctx, "dave")
	assert.NoError(t, err)
	assert.Equal(t, int64(workers), m.Updates)
	// A = identity + sum of outer products: 4 updates per unit vector
	for i := 0; i < 4; i++ {
		assert.Equal(t, float64(1+workers/4), m.A[i][i])
	}
}

func testDelete(t *testing.T, db Database) {
	ctx := context.Background()
	_, err := db.Get(ctx, "erin")
	assert.NoError(t, err)
	assert.NoError(t, db.Update(ctx, "erin", func(m *linucb.Model) error {
		return m.Update([]float64{1, 0, 0, 0}, 1)
	}))
	assert.NoError(t, db.Delete(ctx, "erin"))
	m, err := db.Get(ctx, "erin")
	assert.NoError(t, err)
	assert.Zero(t, m.Updates)
}

func testDatabase(t *testing.T, db Database) {
	t.Run("LazyCreate", func(t *testing.T) { testLazyCreate(t, db) })
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, db) })
	t.Run("UpdateIsolation", func(t *testing.T) { testUpdateIsolation(t, db) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, db) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, db) })
}

func TestMemory(t *testing.T) {
	db, err := Open("memory://", "", testSchema)
	assert.NoError(t, err)
	defer db.Close()
	testDatabase(t, db)
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("unknown://", "", testSchema)
	assert.Error(t, err)
}

func TestNoDatabase(t *testing.T) {
	var db NoDatabase
	assert.ErrorIs(t, db.Init(), ErrNoDatabase)
	_, err := db.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, db.Put(context.Background(), "a", testSchema.newModel()), ErrNoDatabase)
	assert.ErrorIs(t, db.Update(context.Background(), "a", nil), ErrNoDatabase)
}
