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

// Package logics implements the contextual bandit recommendation engine:
// feature extraction, UCB scoring, the exploit/explore selector and the
// online reward updater.
package logics

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/juju/errors"
	"github.com/madder-io/madder/base/log"
	"github.com/madder-io/madder/config"
	"github.com/madder-io/madder/model/linucb"
	"github.com/madder-io/madder/storage/feedback"
	"github.com/madder-io/madder/storage/model"
	"go.uber.org/zap"
)

// Recommendation reason tags.
const (
	ReasonExploit = "exploit"
	ReasonExplore = "explore"
)

// Recommendation is one entry of the returned feed. It carries the exact
// feature vector it was scored with, so feedback can echo it back and the
// reward update uses the same features even if catalog metadata changed
// in between.
type Recommendation struct {
	ItemId      string    `json:"item_id"`
	Reason      string    `json:"reason"`
	Confidence  float64   `json:"confidence"`
	Uncertainty float64   `json:"uncertainty"`
	Score       float64   `json:"score"`
	Features    []float64 `json:"features"`
}

// Recommender is the bandit engine. All configuration is injected at
// construction; there is no global state.
type Recommender struct {
	conf         *config.Config
	extractor    *Extractor
	models       model.Database
	interactions feedback.Database
	filter       *vm.Program
	userLocks    sync.Map // userId -> *sync.Mutex
}

// NewRecommender creates a bandit engine over a model store and an
// interaction log. The optional candidate filter expression from the
// configuration is compiled once here.
func NewRecommender(conf *config.Config, models model.Database, interactions feedback.Database) (*Recommender, error) {
	r := &Recommender{
		conf:         conf,
		extractor:    NewExtractor(),
		models:       models,
		interactions: interactions,
	}
	if conf.Recommend.CandidateFilter != "" {
		filter, err := expr.Compile(conf.Recommend.CandidateFilter, expr.Env(map[string]any{
			"item":    Arm{},
			"context": Context{},
		}))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if filter.Node().Type().Kind() != reflect.Bool {
			return nil, errors.New("candidate filter must return bool")
		}
		r.filter = filter
	}
	return r, nil
}

// Extractor returns the feature extractor of the engine.
func (r *Recommender) Extractor() *Extractor {
	return r.extractor
}

type scoredArm struct {
	arm         Arm
	features    []float64
	confidence  float64
	uncertainty float64
	score       float64
}

// Recommend scores the candidates for a user and returns up to n of them,
// mixing the best expected reward with the highest uncertainty according
// to the configured exploration ratio. The returned list is shuffled to
// remove position bias.
func (r *Recommender) Recommend(ctx context.Context, rctx Context, candidates []Arm, n int) ([]Recommendation, error) {
	if n <= 0 {
		n = r.conf.Recommend.DefaultCount
	}
	ratio := math.Min(1, math.Max(0, r.conf.Recommend.ExplorationRatio))
	arms := r.filterCandidates(rctx, candidates)
	m := r.userModel(ctx, rctx.UserId)

	scored := make([]scoredArm, 0, len(arms))
	for _, arm := range arms {
		x := r.extractor.Extract(arm, rctx)
		confidence, uncertainty, err := m.Score(x)
		if err != nil {
			return nil, errors.Trace(err)
		}
		scored = append(scored, scoredArm{
			arm:         arm,
			features:    x,
			confidence:  confidence,
			uncertainty: uncertainty,
			score:       confidence + r.conf.Recommend.Alpha*uncertainty,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	count := n
	if len(scored) < count {
		count = len(scored)
	}
	numExploit := int(float64(count) * (1 - ratio))
	exploit := scored[:numExploit]
	rest := append([]scoredArm(nil), scored[numExploit:]...)
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].uncertainty > rest[j].uncertainty
	})
	explore := rest[:count-numExploit]

	recommendations := make([]Recommendation, 0, count)
	for _, s := range exploit {
		recommendations = append(recommendations, s.recommendation(ReasonExploit))
	}
	for _, s := range explore {
		recommendations = append(recommendations, s.recommendation(ReasonExplore))
	}
	rand.Shuffle(len(recommendations), func(i, j int) {
		recommendations[i], recommendations[j] = recommendations[j], recommendations[i]
	})
	return recommendations, nil
}

func (s scoredArm) recommendation(reason string) Recommendation {
	return Recommendation{
		ItemId:      s.arm.Id,
		Reason:      reason,
		Confidence:  s.confidence,
		Uncertainty: s.uncertainty,
		Score:       s.score,
		Features:    s.features,
	}
}

// filterCandidates drops recently seen items and candidates rejected by
// the configured filter expression.
func (r *Recommender) filterCandidates(rctx Context, candidates []Arm) []Arm {
	seen := mapset.NewSet(rctx.RecentItems...)
	arms := make([]Arm, 0, len(candidates))
	for _, arm := range candidates {
		if seen.Contains(arm.Id) {
			continue
		}
		if r.filter != nil {
			result, err := expr.Run(r.filter, map[string]any{"item": arm, "context": rctx})
			if err != nil {
				log.Logger().Warn("failed to evaluate candidate filter",
					zap.String("item_id", arm.Id), zap.Error(err))
				continue
			}
			if pass, ok := result.(bool); !ok || !pass {
				continue
			}
		}
		arms = append(arms, arm)
	}
	return arms
}

// userModel loads the model of a user, degrading to an untrained model
// when the store is unavailable so one storage fault never fails a
// recommendation request.
func (r *Recommender) userModel(ctx context.Context, userId string) *linucb.Model {
	ctx, cancel := context.WithTimeout(ctx, r.conf.Database.IOTimeout)
	defer cancel()
	m, err := r.models.Get(ctx, userId)
	if err != nil {
		log.Logger().Warn("model store unavailable, degrading to pure exploration",
			zap.String("user_id", userId), zap.Error(err))
		return linucb.New(r.extractor.Dimension(), r.extractor.Version())
	}
	return m
}

func (r *Recommender) userLock(userId string) *sync.Mutex {
	lock, _ := r.userLocks.LoadOrStore(userId, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
