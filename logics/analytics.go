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

package logics

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/madder-io/madder/storage/feedback"
)

// Analytics windows.
const (
	WindowDay   = "day"
	WindowWeek  = "week"
	WindowMonth = "month"
)

var windowDurations = map[string]time.Duration{
	WindowDay:   24 * time.Hour,
	WindowWeek:  7 * 24 * time.Hour,
	WindowMonth: 30 * 24 * time.Hour,
}

// Analytics aggregates the interaction log over a trailing window into
// exploration/exploitation rates and average reward. Read-only reporting,
// not part of the learning path.
func (r *Recommender) Analytics(ctx context.Context, window string) (feedback.Aggregate, error) {
	duration, exist := windowDurations[window]
	if !exist {
		return feedback.Aggregate{}, errors.Errorf("unknown analytics window %q", window)
	}
	aggregate, err := r.interactions.Aggregate(ctx, time.Now().Add(-duration))
	return aggregate, errors.Trace(err)
}
