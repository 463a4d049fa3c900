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
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/madder-io/madder/model/linucb"
)

// Cached is a read-through proxy over another model store. Recommendation
// requests hit the same few models repeatedly within a session, so hot
// models are served from a TTL cache. Writes go straight to the
// underlying store and invalidate the cached entry, which keeps a slightly
// stale read possible but never a torn one.
type Cached struct {
	Database
	cache *ttlcache.Cache[string, *linucb.Model]
}

// NewCached wraps a model store with a TTL read cache.
func NewCached(database Database, ttl time.Duration) *Cached {
	cache := ttlcache.New[string, *linucb.Model](
		ttlcache.WithTTL[string, *linucb.Model](ttl),
		ttlcache.WithDisableTouchOnHit[string, *linucb.Model](),
	)
	go cache.Start()
	return &Cached{Database: database, cache: cache}
}

func (c *Cached) Close() error {
	c.cache.Stop()
	return c.Database.Close()
}

func (c *Cached) Get(ctx context.Context, userId string) (*linucb.Model, error) {
	if item := c.cache.Get(userId); item != nil {
		CachedModelHits.Inc()
		return item.Value().Clone(), nil
	}
	CachedModelMisses.Inc()
	m, err := c.Database.Get(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c.cache.Set(userId, m.Clone(), ttlcache.DefaultTTL)
	return m, nil
}

func (c *Cached) Put(ctx context.Context, userId string, model *linucb.Model) error {
	if err := c.Database.Put(ctx, userId, model); err != nil {
		return errors.Trace(err)
	}
	c.cache.Delete(userId)
	return nil
}

func (c *Cached) Update(ctx context.Context, userId string, fn func(*linucb.Model) error) error {
	if err := c.Database.Update(ctx, userId, fn); err != nil {
		return errors.Trace(err)
	}
	c.cache.Delete(userId)
	return nil
}

func (c *Cached) Delete(ctx context.Context, userId string) error {
	if err := c.Database.Delete(ctx, userId); err != nil {
		return errors.Trace(err)
	}
	c.cache.Delete(userId)
	return nil
}

func (c *Cached) Purge() error {
	if err := c.Database.Purge(); err != nil {
		return errors.Trace(err)
	}
	c.cache.DeleteAll()
	return nil
}
