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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GetModelSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "madder",
		Subsystem: "model_store",
		Name:      "get_model_seconds",
	})
	PutModelSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "madder",
		Subsystem: "model_store",
		Name:      "put_model_seconds",
	})
	UpdateModelSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "madder",
		Subsystem: "model_store",
		Name:      "update_model_seconds",
	})
	UpdateModelConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "madder",
		Subsystem: "model_store",
		Name:      "update_model_conflicts",
	})
	CachedModelHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "madder",
		Subsystem: "model_store",
		Name:      "cached_model_hits",
	})
	CachedModelMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "madder",
		Subsystem: "model_store",
		Name:      "cached_model_misses",
	})
)
