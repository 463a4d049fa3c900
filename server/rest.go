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

// Package server exposes the recommendation engine over a REST-ful API.
package server

import (
	"fmt"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/madder-io/madder/base/log"
	"github.com/madder-io/madder/config"
	"github.com/madder-io/madder/logics"
	"github.com/madder-io/madder/storage/feedback"
	"github.com/madder-io/madder/storage/model"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RestServer implements the REST-ful API server.
type RestServer struct {
	Config      *config.Config
	Recommender *logics.Recommender
	ModelClient model.Database
	LogClient   feedback.Database
	HttpHost    string
	HttpPort    int
	WebService  *restful.WebService
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	// register restful APIs
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register swagger spec
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	http.Handle("/metrics", promhttp.Handler())

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort), nil)))
}

// RequestIDFilter tags every response with a request id, either the one the
// client sent or a fresh one.
func RequestIDFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.Header().Set("X-Request-ID", requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	if req.Request.URL.Path != "/api/health" {
		log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()))
	}
}

// RecommendQuery is the request body of the recommend API.
type RecommendQuery struct {
	Context    logics.Context `json:"context"`
	Candidates []logics.Arm   `json:"candidates"`
	Count      int            `json:"count"`
}

// FeedbackQuery is the request body of the feedback API. Features may echo
// the vector returned by a recommendation; when absent, features are
// re-derived from the item metadata.
type FeedbackQuery struct {
	Context  logics.Context `json:"context"`
	Item     logics.Arm     `json:"item"`
	Action   string         `json:"action"`
	Source   string         `json:"source"`
	Features []float64      `json:"features"`
}

// Success is the response body of write APIs.
type Success struct {
	RowAffected int
}

// HealthStatus is the response body of the health API.
type HealthStatus struct {
	Ready           bool   `json:"ready"`
	ModelStoreError string `json:"model_store_error,omitempty"`
	LogStoreError   string `json:"log_store_error,omitempty"`
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(RequestIDFilter)
	ws.Filter(LogFilter)

	// Get recommendations
	ws.Route(ws.POST("/recommend").To(s.recommend).
		Doc("Get recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(RecommendQuery{}).
		Writes([]logics.Recommendation{}))
	// Insert feedback
	ws.Route(ws.POST("/feedback").To(s.insertFeedback).
		Doc("Insert a user action on an item.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"feedback"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(FeedbackQuery{}).
		Writes(Success{}))
	// Get analytics
	ws.Route(ws.GET("/analytics").To(s.getAnalytics).
		Doc("Get exploration/exploitation statistics over a trailing window.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"analytics"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("window", "trailing window (day, week or month)").DataType("string")).
		Writes(feedback.Aggregate{}))
	// Health check
	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Check connections to the model store and the interaction log.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthStatus{}))
}

func (s *RestServer) recommend(request *restful.Request, response *restful.Response) {
	// Authorize
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	defer func() {
		RecommendSeconds.Observe(time.Since(start).Seconds())
	}()
	// Parse request
	var query RecommendQuery
	if err := request.ReadEntity(&query); err != nil {
		BadRequest(response, err)
		return
	}
	if query.Context.UserId == "" {
		BadRequest(response, errors.New("user_id is required"))
		return
	}
	if query.Context.Timestamp.IsZero() {
		query.Context.Timestamp = time.Now().UTC()
	}
	recommendations, err := s.Recommender.Recommend(
		request.Request.Context(), query.Context, query.Candidates, query.Count)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	for _, rec := range recommendations {
		RecommendationsTotal.WithLabelValues(rec.Reason).Inc()
	}
	Ok(response, recommendations)
}

func (s *RestServer) insertFeedback(request *restful.Request, response *restful.Response) {
	// Authorize
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	defer func() {
		FeedbackSeconds.Observe(time.Since(start).Seconds())
	}()
	// Parse request
	var query FeedbackQuery
	if err := request.ReadEntity(&query); err != nil {
		BadRequest(response, err)
		return
	}
	if query.Context.UserId == "" || query.Item.Id == "" {
		BadRequest(response, errors.New("user_id and item id are required"))
		return
	}
	if query.Context.Timestamp.IsZero() {
		query.Context.Timestamp = time.Now().UTC()
	}
	err := s.Recommender.RecordFeedback(request.Request.Context(),
		query.Context, query.Item, query.Action, query.Source, query.Features)
	if errors.Is(err, logics.ErrInvalidAction) {
		BadRequest(response, err)
		return
	} else if err != nil {
		InternalServerError(response, err)
		return
	}
	FeedbackTotal.WithLabelValues(query.Action).Inc()
	Ok(response, Success{RowAffected: 1})
}

func (s *RestServer) getAnalytics(request *restful.Request, response *restful.Response) {
	// Authorize
	if !s.auth(request, response) {
		return
	}
	window := request.QueryParameter("window")
	if window == "" {
		window = logics.WindowWeek
	}
	aggregate, err := s.Recommender.Analytics(request.Request.Context(), window)
	if errors.Is(err, feedback.ErrNoDatabase) {
		InternalServerError(response, err)
		return
	} else if err != nil {
		BadRequest(response, err)
		return
	}
	Ok(response, aggregate)
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	status := HealthStatus{Ready: true}
	if err := s.ModelClient.Ping(); err != nil {
		status.Ready = false
		status.ModelStoreError = err.Error()
	}
	// a missing interaction log degrades analytics only, it never makes
	// the server unready
	if err := s.LogClient.Ping(); err != nil && !errors.Is(err, feedback.ErrNoDatabase) {
		status.Ready = false
		status.LogStoreError = err.Error()
	}
	Ok(response, status)
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized")
	if err := response.WriteError(http.StatusUnauthorized, errors.New("unauthorized")); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
	return false
}
