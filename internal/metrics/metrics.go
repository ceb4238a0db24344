// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics provides Prometheus metrics for fngate.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StatusOK labels successful invocations and store operations
const StatusOK = "ok"

var (
	// InvocationDuration tracks the duration of invocations in seconds
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fngate_invocation_duration_seconds",
			Help:    "Duration of invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "code"},
	)

	// InvocationTotal tracks the total number of invocations by outcome code
	InvocationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_invocations_total",
			Help: "Total number of invocations",
		},
		[]string{"operation", "code"},
	)

	// HandlerPanics tracks recovered handler panics
	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_handler_panics_total",
			Help: "Total number of recovered handler panics",
		},
		[]string{"operation"},
	)

	// AuthResolutions tracks resolved callers by kind
	AuthResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_auth_resolutions_total",
			Help: "Total number of resolved auth contexts",
		},
		[]string{"result"},
	)

	// StoreOperationDuration tracks document store latency in seconds
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fngate_store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	// StoreOperationTotal tracks document store operations by status
	StoreOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_store_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"operation", "collection", "status"},
	)

	// NotificationsTotal tracks dispatched notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_notifications_total",
			Help: "Total number of dispatched notifications",
		},
		[]string{"notifier", "status"},
	)

	// CompletionsTotal tracks language model completions
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_completions_total",
			Help: "Total number of language model completions",
		},
		[]string{"model", "status"},
	)

	// HTTPRequestsTotal tracks HTTP requests by route pattern and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fngate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)
)

// RecordInvocation records an invocation with its outcome code
func RecordInvocation(operation, code string, duration time.Duration) {
	InvocationDuration.WithLabelValues(operation, code).Observe(duration.Seconds())
	InvocationTotal.WithLabelValues(operation, code).Inc()
}

// RecordPanic records a recovered handler panic
func RecordPanic(operation string) {
	HandlerPanics.WithLabelValues(operation).Inc()
}

// RecordAuthResolution records whether a caller was authenticated
func RecordAuthResolution(authenticated bool) {
	result := "anonymous"
	if authenticated {
		result = "authenticated"
	}
	AuthResolutions.WithLabelValues(result).Inc()
}

// RecordStoreOperation records a document store operation
func RecordStoreOperation(operation, collection, status string, duration time.Duration) {
	StoreOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
	StoreOperationTotal.WithLabelValues(operation, collection, status).Inc()
}

// RecordNotification records a notification dispatch
func RecordNotification(notifier, status string) {
	NotificationsTotal.WithLabelValues(notifier, status).Inc()
}

// RecordCompletion records a language model completion
func RecordCompletion(model, status string) {
	CompletionsTotal.WithLabelValues(model, status).Inc()
}

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(route string, status int) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
