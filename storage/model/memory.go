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

	"github.com/madder-io/madder/model/linucb"
)

// Memory keeps models in process memory. Used in tests and single-node
// deployments that accept losing learned state on restart.
type Memory struct {
	mu     sync.Mutex
	models map[string]*linucb.Model
	schema Schema
}

func NewMemory(schema Schema) *Memory {
	return &Memory{
		models: make(map[string]*linucb.Model),
		schema: schema,
	}
}

// Init nothing.
func (m *Memory) Init() error {
	return nil
}

// Close nothing.
func (m *Memory) Close() error {
	return nil
}

// Ping nothing.
func (m *Memory) Ping() error {
	return nil
}

func (m *Memory) Get(_ context.Context, userId string) (*linucb.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, exist := m.models[userId]; exist {
		return stored.Clone(), nil
	}
	created := m.schema.newModel()
	m.models[userId] = created.Clone()
	return created, nil
}

func (m *Memory) Put(_ context.Context, userId string, model *linucb.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[userId] = model.Clone()
	return nil
}

func (m *Memory) Update(_ context.Context, userId string, fn func(*linucb.Model) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.schema.newModel()
	if stored, exist := m.models[userId]; exist {
		work = stored.Clone()
	}
	if err := fn(work); err != nil {
		return err
	}
	m.models[userId] = work
	return nil
}

func (m *Memory) Delete(_ context.Context, userId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.models, userId)
	return nil
}

func (m *Memory) Purge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = make(map[string]*linucb.Model)
	return nil
}
