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

	"github.com/madder-io/madder/model/linucb"
)

// NoDatabase means no model store is attached. Every call fails with
// ErrNoDatabase; the recommendation path degrades to pure exploration.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Get(_ context.Context, _ string) (*linucb.Model, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) Put(_ context.Context, _ string, _ *linucb.Model) error {
	return ErrNoDatabase
}

func (NoDatabase) Update(_ context.Context, _ string, _ func(*linucb.Model) error) error {
	return ErrNoDatabase
}

func (NoDatabase) Delete(_ context.Context, _ string) error {
	return ErrNoDatabase
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}
