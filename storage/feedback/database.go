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

// Package feedback stores the append-only interaction log: every reward
// observation with the context and features it was recorded under. The
// log feeds analytics, not the online-learning critical path.
package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/madder-io/madder/base/log"
	"github.com/madder-io/madder/storage"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrNoDatabase = errors.NotAssignedf("interaction log store")

// Interaction is one observed (user, item, action) event with its reward
// and the context snapshot it was scored under. Rows are append-only.
type Interaction struct {
	Id        string    `gorm:"column:id;primaryKey" json:"id"`
	UserId    string    `gorm:"column:user_id;index" json:"user_id"`
	ItemId    string    `gorm:"column:item_id" json:"item_id"`
	Action    string    `gorm:"column:action" json:"action"`
	Reward    float64   `gorm:"column:reward" json:"reward"`
	Source    string    `gorm:"column:source" json:"source"`
	Context   string    `gorm:"column:context;type:text" json:"context"`
	Features  []float64 `gorm:"column:features;serializer:json" json:"features"`
	Timestamp time.Time `gorm:"column:time_stamp;index" json:"timestamp"`
}

// Aggregate summarizes the interaction log over a trailing window.
type Aggregate struct {
	Interactions     int64   `json:"interactions"`
	AverageReward    float64 `json:"average_reward"`
	ExplorationRate  float64 `json:"exploration_rate"`
	ExploitationRate float64 `json:"exploitation_rate"`
}

// Database is the interaction log store.
type Database interface {
	Init() error
	Close() error
	Ping() error
	// Insert appends interactions to the log.
	Insert(ctx context.Context, interactions ...Interaction) error
	// GetByUser returns the latest interactions of a user.
	GetByUser(ctx context.Context, userId string, n int) ([]Interaction, error)
	// Aggregate summarizes interactions recorded at or after begin.
	Aggregate(ctx context.Context, begin time.Time) (Aggregate, error)
	Purge() error
}

// Open a connection to an interaction log store. Supported schemes are
// postgres://, postgresql://, mysql:// and sqlite://.
func Open(path, tablePrefix string) (Database, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(path, storage.PostgresPrefix),
		strings.HasPrefix(path, storage.PostgreSQLPrefix):
		dialector = postgres.Open(path)
	case strings.HasPrefix(path, storage.MySQLPrefix):
		dialector = mysql.Open(path[len(storage.MySQLPrefix):])
	case strings.HasPrefix(path, storage.SQLitePrefix):
		dialector = sqlite.Open(path[len(storage.SQLitePrefix):])
	default:
		return nil, errors.Errorf("unknown interaction log store: %s", log.RedactDBURL(path))
	}
	gormDB, err := gorm.Open(dialector, storage.NewGORMConfig(tablePrefix))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &SQLDatabase{gormDB: gormDB}, nil
}
