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

	"github.com/juju/errors"
	"github.com/madder-io/madder/model/linucb"
	"github.com/madder-io/madder/storage"
	"github.com/redis/go-redis/v9"
)

// updateRetries bounds the optimistic retry loop of Redis.Update.
const updateRetries = 16

// Redis keeps models as JSON blobs, one key per user. Update runs as a
// WATCH-guarded transaction so concurrent writers from other replicas
// cannot overwrite each other.
type Redis struct {
	client *redis.Client
	prefix storage.TablePrefix
	schema Schema
}

// Init nothing.
func (r *Redis) Init() error {
	return nil
}

// Close redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping redis.
func (r *Redis) Ping() error {
	return r.client.Ping(context.Background()).Err()
}

func (r *Redis) Get(ctx context.Context, userId string) (*linucb.Model, error) {
	startTime := time.Now()
	defer func() {
		GetModelSeconds.Observe(time.Since(startTime).Seconds())
	}()
	key := r.prefix.ModelKey(userId)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		m := r.schema.newModel()
		if err = r.put(ctx, userId, m); err != nil {
			return nil, errors.Trace(err)
		}
		return m, nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return r.schema.decode(userId, data), nil
}

func (r *Redis) Put(ctx context.Context, userId string, model *linucb.Model) error {
	startTime := time.Now()
	defer func() {
		PutModelSeconds.Observe(time.Since(startTime).Seconds())
	}()
	return r.put(ctx, userId, model)
}

func (r *Redis) put(ctx context.Context, userId string, model *linucb.Model) error {
	data, err := model.Marshal()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.client.Set(ctx, r.prefix.ModelKey(userId), data, 0).Err())
}

func (r *Redis) Update(ctx context.Context, userId string, fn func(*linucb.Model) error) error {
	startTime := time.Now()
	defer func() {
		UpdateModelSeconds.Observe(time.Since(startTime).Seconds())
	}()
	key := r.prefix.ModelKey(userId)
	txn := func(tx *redis.Tx) error {
		var m *linucb.Model
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			m = r.schema.newModel()
		} else if err != nil {
			return errors.Trace(err)
		} else {
			m = r.schema.decode(userId, data)
		}
		if err = fn(m); err != nil {
			return errors.Trace(err)
		}
		if data, err = m.Marshal(); err != nil {
			return errors.Trace(err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return errors.Trace(err)
	}
	for i := 0; i < updateRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			UpdateModelConflicts.Inc()
			continue
		}
		return errors.Trace(err)
	}
	return errors.Trace(ErrConflict)
}

func (r *Redis) Delete(ctx context.Context, userId string) error {
	return errors.Trace(r.client.Del(ctx, r.prefix.ModelKey(userId)).Err())
}

// Purge removes all models under the table prefix.
func (r *Redis) Purge() error {
	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix.ModelKey("*"), 1000).Result()
		if err != nil {
			return errors.Trace(err)
		}
		if len(keys) > 0 {
			if err = r.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Trace(err)
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}
