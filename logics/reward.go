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

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/madder-io/madder/base/json"
	"github.com/madder-io/madder/base/log"
	"github.com/madder-io/madder/model/linucb"
	"github.com/madder-io/madder/storage/feedback"
	"go.uber.org/zap"
)

// User actions and their rewards. The action set is closed: anything else
// is rejected before any model state is touched.
const (
	ActionSkip     = "skip"
	ActionView     = "view"
	ActionSave     = "save"
	ActionInquiry  = "inquiry"
	ActionPurchase = "purchase"
)

// Sources tag where an interaction originated.
const (
	SourceExploit = ReasonExploit
	SourceExplore = ReasonExplore
	SourceOrganic = "organic"
)

var ErrInvalidAction = errors.New("invalid action kind")

var actionRewards = map[string]float64{
	ActionSkip:     0,
	ActionView:     0.1,
	ActionSave:     0.5,
	ActionInquiry:  0.8,
	ActionPurchase: 1.0,
}

// RewardOf maps an action to its scalar reward.
func RewardOf(action string) (float64, error) {
	reward, exist := actionRewards[action]
	if !exist {
		return 0, errors.Annotatef(ErrInvalidAction, "action %q", action)
	}
	return reward, nil
}

// RecordFeedback converts a user action into a reward and applies the
// rank-one update to the user's model. Updates for one user are
// serialized by a per-user lock; updates for different users proceed in
// parallel. The model write is mandatory, the interaction log append is
// best-effort.
//
// When the caller echoes the feature vector a recommendation was scored
// with, the update uses it verbatim; otherwise features are re-derived
// from the arm's current metadata.
func (r *Recommender) RecordFeedback(ctx context.Context, rctx Context, arm Arm, action, source string, echoed []float64) error {
	reward, err := RewardOf(action)
	if err != nil {
		return errors.Trace(err)
	}
	if source == "" {
		source = SourceOrganic
	}
	x := echoed
	if len(x) != r.extractor.Dimension() {
		x = r.extractor.Extract(arm, rctx)
	}

	lock := r.userLock(rctx.UserId)
	lock.Lock()
	defer lock.Unlock()
	updateCtx, cancel := context.WithTimeout(ctx, r.conf.Database.IOTimeout)
	defer cancel()
	if err = r.models.Update(updateCtx, rctx.UserId, func(m *linucb.Model) error {
		m.RefreshEvery = r.conf.Recommend.InverseRefreshPeriod
		return m.Update(x, reward)
	}); err != nil {
		// a dropped reward loses learning signal permanently, surface the
		// failure so the caller can retry
		return errors.Trace(err)
	}

	encodedContext, err := json.Marshal(rctx)
	if err != nil {
		encodedContext = []byte("{}")
	}
	if err = r.interactions.Insert(ctx, feedback.Interaction{
		Id:        uuid.NewString(),
		UserId:    rctx.UserId,
		ItemId:    arm.Id,
		Action:    action,
		Reward:    reward,
		Source:    source,
		Context:   string(encodedContext),
		Features:  x,
		Timestamp: time.Now().UTC(),
	}); err != nil && !errors.Is(err, feedback.ErrNoDatabase) {
		// the model update already persisted; audit logging never rolls it back
		log.Logger().Error("failed to append interaction log",
			zap.String("user_id", rctx.UserId), zap.String("item_id", arm.Id), zap.Error(err))
	}
	return nil
}
