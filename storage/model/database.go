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

// Package model persists the per-user LinUCB models. The store is the
// sole authority for current model state: reward updates go through
// Update, which serializes concurrent read-modify-writes per user.
package model

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/madder-io/madder/base/log"
	"github.com/madder-io/madder/model/linucb"
	"github.com/madder-io/madder/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNoDatabase = errors.NotAssignedf("model store")
	// ErrConflict is returned when an optimistic update ran out of retries.
	ErrConflict = errors.New("concurrent model update conflict")
)

// Schema pins the feature layout the stored models were trained under.
// Models persisted with another schema are replaced by fresh ones.
type Schema struct {
	Dimension int
	Version   int
}

// Database stores one LinUCB model per user.
type Database interface {
	Init() error
	Close() error
	Ping() error
	// Get returns the model of a user, lazily creating and persisting an
	// untrained model when absent.
	Get(ctx context.Context, userId string) (*linucb.Model, error)
	// Put overwrites the model of a user.
	Put(ctx context.Context, userId string, model *linucb.Model) error
	// Update applies fn to the current model atomically with respect to
	// other Update calls for the same user.
	Update(ctx context.Context, userId string, fn func(*linucb.Model) error) error
	Delete(ctx context.Context, userId string) error
	Purge() error
}

// Open a connection to a model store. Supported schemes are redis://,
// rediss:// and memory://.
func Open(path, tablePrefix string, schema Schema) (Database, error) {
	switch {
	case strings.HasPrefix(path, storage.RedisPrefix),
		strings.HasPrefix(path, storage.RedissPrefix):
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := &Redis{
			client: redis.NewClient(opt),
			prefix: storage.TablePrefix(tablePrefix),
			schema: schema,
		}
		return database, nil
	case strings.HasPrefix(path, storage.MemoryPrefix):
		return NewMemory(schema), nil
	}
	return nil, errors.Errorf("unknown model store: %s", log.RedactDBURL(path))
}

// newModel creates the identity model for a user seen for the first time.
func (s Schema) newModel() *linucb.Model {
	return linucb.New(s.Dimension, s.Version)
}

// decode parses a persisted model, falling back to a fresh one when the
// payload was written under another feature schema.
func (s Schema) decode(userId string, data []byte) *linucb.Model {
	m, err := linucb.Decode(data, s.Dimension, s.Version)
	if err != nil {
		log.Logger().Warn("reset persisted model",
			zap.String("user_id", userId), zap.Error(err))
		return s.newModel()
	}
	return m
}
