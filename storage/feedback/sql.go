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

package feedback

import (
	"context"
	"time"

	"github.com/juju/errors"
	"gorm.io/gorm"
)

// SQLDatabase stores interactions in a relational database via GORM.
type SQLDatabase struct {
	gormDB *gorm.DB
}

// Init creates the interactions table.
func (d *SQLDatabase) Init() error {
	return errors.Trace(d.gormDB.AutoMigrate(&Interaction{}))
}

// Close the database connection.
func (d *SQLDatabase) Close() error {
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(sqlDB.Close())
}

// Ping the database.
func (d *SQLDatabase) Ping() error {
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(sqlDB.Ping())
}

func (d *SQLDatabase) Insert(ctx context.Context, interactions ...Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	startTime := time.Now()
	err := d.gormDB.WithContext(ctx).Create(interactions).Error
	InsertInteractionSeconds.Observe(time.Since(startTime).Seconds())
	return errors.Trace(err)
}

func (d *SQLDatabase) GetByUser(ctx context.Context, userId string, n int) ([]Interaction, error) {
	var interactions []Interaction
	err := d.gormDB.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("time_stamp desc").
		Limit(n).
		Find(&interactions).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return interactions, nil
}

func (d *SQLDatabase) Aggregate(ctx context.Context, begin time.Time) (Aggregate, error) {
	startTime := time.Now()
	defer func() {
		AggregateInteractionSeconds.Observe(time.Since(startTime).Seconds())
	}()
	var result struct {
		Interactions int64
		SumReward    float64
		Explore      int64
		Exploit      int64
	}
	err := d.gormDB.WithContext(ctx).Model(&Interaction{}).
		Select("count(*) as interactions, "+
			"coalesce(sum(reward), 0) as sum_reward, "+
			"coalesce(sum(case when source = 'explore' then 1 else 0 end), 0) as explore, "+
			"coalesce(sum(case when source = 'exploit' then 1 else 0 end), 0) as exploit").
		Where("time_stamp >= ?", begin).
		Scan(&result).Error
	if err != nil {
		return Aggregate{}, errors.Trace(err)
	}
	aggregate := Aggregate{Interactions: result.Interactions}
	if result.Interactions > 0 {
		aggregate.AverageReward = result.SumReward / float64(result.Interactions)
		aggregate.ExplorationRate = float64(result.Explore) / float64(result.Interactions)
		aggregate.ExploitationRate = float64(result.Exploit) / float64(result.Interactions)
	}
	return aggregate, nil
}

// Purge removes all interactions. Test helper.
func (d *SQLDatabase) Purge() error {
	return errors.Trace(d.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Interaction{}).Error)
}
