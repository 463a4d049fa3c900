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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/madder-io/madder/config"
	"github.com/madder-io/madder/logics"
	"github.com/madder-io/madder/storage/feedback"
	"github.com/madder-io/madder/storage/model"
	"github.com/samber/lo"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/suite"
)

const apiKey = "test_api_key"

type ServerTestSuite struct {
	suite.Suite
	RestServer
	handler *restful.Container
}

func (suite *ServerTestSuite) SetupSuite() {
	var err error
	suite.Config = config.GetDefaultConfig()
	suite.Config.Server.APIKey = apiKey
	// open database
	suite.ModelClient, err = model.Open("memory://", "", model.Schema{
		Dimension: logics.FeatureDimension,
		Version:   logics.FeatureSchemaVersion,
	})
	suite.NoError(err)
	suite.LogClient, err = feedback.Open(fmt.Sprintf("sqlite://%s/interactions.db", suite.T().TempDir()), "")
	suite.NoError(err)
	suite.NoError(suite.LogClient.Init())
	suite.Recommender, err = logics.NewRecommender(suite.Config, suite.ModelClient, suite.LogClient)
	suite.NoError(err)

	suite.WebService = new(restful.WebService)
	suite.CreateWebService()
	suite.handler = restful.NewContainer()
	suite.handler.Add(suite.WebService)
}

func (suite *ServerTestSuite) TearDownSuite() {
	suite.NoError(suite.ModelClient.Close())
	suite.NoError(suite.LogClient.Close())
}

func (suite *ServerTestSuite) SetupTest() {
	suite.NoError(suite.ModelClient.Purge())
	suite.NoError(suite.LogClient.Purge())
}

func (suite *ServerTestSuite) marshal(v interface{}) string {
	s, err := json.Marshal(v)
	suite.NoError(err)
	return string(s)
}

func testCandidates(n int) []logics.Arm {
	arms := make([]logics.Arm, n)
	for i := range arms {
		arms[i] = logics.Arm{
			Id:         fmt.Sprintf("artwork-%d", i),
			Medium:     logics.Mediums[i%len(logics.Mediums)],
			Genre:      logics.Genres[i%len(logics.Genres)],
			Price:      float64(100 * (i + 1)),
			Popularity: float64(i) / float64(n),
		}
	}
	return arms
}

func (suite *ServerTestSuite) TestRecommend() {
	result := apitest.New().
		Handler(suite.handler).
		Post("/api/recommend").
		Header("X-API-Key", apiKey).
		JSON(suite.marshal(RecommendQuery{
			Context:    logics.Context{UserId: "alice", Timestamp: time.Now()},
			Candidates: testCandidates(15),
			Count:      10,
		})).
		Expect(suite.T()).
		Status(http.StatusOK).
		End()

	var recommendations []logics.Recommendation
	suite.NoError(json.NewDecoder(result.Response.Body).Decode(&recommendations))
	suite.Len(recommendations, 10)
	itemIds := lo.Map(recommendations, func(r logics.Recommendation, _ int) string {
		return r.ItemId
	})
	suite.Len(lo.Uniq(itemIds), 10)
	suite.Equal(8, lo.CountBy(recommendations, func(r logics.Recommendation) bool {
		return r.Reason == logics.ReasonExploit
	}))
}

func (suite *ServerTestSuite) TestRecommendMissingUser() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/recommend").
		Header("X-API-Key", apiKey).
		JSON(suite.marshal(RecommendQuery{Candidates: testCandidates(3)})).
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestUnauthorized() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/recommend").
		Header("X-API-Key", "wrong_api_key").
		JSON(suite.marshal(RecommendQuery{
			Context: logics.Context{UserId: "alice"},
		})).
		Expect(suite.T()).
		Status(http.StatusUnauthorized).
		End()
}

func (suite *ServerTestSuite) TestFeedback() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/feedback").
		Header("X-API-Key", apiKey).
		JSON(suite.marshal(FeedbackQuery{
			Context: logics.Context{UserId: "alice", Timestamp: time.Now()},
			Item:    testCandidates(1)[0],
			Action:  logics.ActionPurchase,
			Source:  logics.SourceExploit,
		})).
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(suite.marshal(Success{RowAffected: 1})).
		End()

	// the reward reached the model store
	m, err := suite.ModelClient.Get(context.Background(), "alice")
	suite.NoError(err)
	suite.Equal(int64(1), m.Updates)
}

func (suite *ServerTestSuite) TestFeedbackInvalidAction() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/feedback").
		Header("X-API-Key", apiKey).
		JSON(suite.marshal(FeedbackQuery{
			Context: logics.Context{UserId: "alice"},
			Item:    testCandidates(1)[0],
			Action:  "applaud",
		})).
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestAnalytics() {
	for _, action := range []string{logics.ActionView, logics.ActionPurchase} {
		apitest.New().
			Handler(suite.handler).
			Post("/api/feedback").
			Header("X-API-Key", apiKey).
			JSON(suite.marshal(FeedbackQuery{
				Context: logics.Context{UserId: "bob", Timestamp: time.Now()},
				Item:    testCandidates(1)[0],
				Action:  action,
				Source:  logics.SourceExplore,
			})).
			Expect(suite.T()).
			Status(http.StatusOK).
			End()
	}

	result := apitest.New().
		Handler(suite.handler).
		Get("/api/analytics").
		Header("X-API-Key", apiKey).
		Query("window", logics.WindowDay).
		Expect(suite.T()).
		Status(http.StatusOK).
		End()
	var aggregate feedback.Aggregate
	suite.NoError(json.NewDecoder(result.Response.Body).Decode(&aggregate))
	suite.Equal(int64(2), aggregate.Interactions)
	suite.InDelta(0.55, aggregate.AverageReward, 1e-9)
	suite.InDelta(1.0, aggregate.ExplorationRate, 1e-9)
}

func (suite *ServerTestSuite) TestAnalyticsUnknownWindow() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/analytics").
		Header("X-API-Key", apiKey).
		Query("window", "fortnight").
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestHealth() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/health").
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(suite.marshal(HealthStatus{Ready: true})).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
