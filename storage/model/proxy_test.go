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
	"testing"
	"time"

	"github.com/madder-io/madder/model/linucb"
	"github.com/stretchr/testify/assert"
)

func TestCached(t *testing.T) {
	db := NewCached(NewMemory(testSchema), time.Minute)
	defer db.Close()
	testDatabase(t, db)
}

func TestCachedInvalidation(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory(testSchema)
	db := NewCached(inner, time.Minute)
	defer db.Close()

	// warm the cache
	m, err := db.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.Zero(t, m.Updates)

	// a write through the proxy must not serve the stale cached model
	assert.NoError(t, db.Update(ctx, "alice", func(m *linucb.Model) error {
		return m.Update([]float64{1, 0, 0, 0}, 1)
	}))
	m, err = db.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), m.Updates)

	// mutating a cached read must not leak into the store
	m.A[0][0] = 42
	again, err := db.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.NotEqual(t, 42.0, again.A[0][0])
}
