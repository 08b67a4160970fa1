// Copyright 2025 Cubedeck
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

package olapadmin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for datasource administration operations
var (
	datasourceOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubedeck_olap_datasource_operations_total",
			Help: "Total number of datasource admin operations",
		},
		[]string{"operation", "status"},
	)

	datasourceOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cubedeck_olap_datasource_operation_duration_seconds",
			Help:    "Duration of datasource admin operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Entries dropped from a zip bundle because their content copy failed.
	// Bundle assembly deliberately skips broken entries instead of aborting
	// the archive; this counter is how those skips surface.
	bundleEntriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cubedeck_olap_bundle_entries_skipped_total",
			Help: "Total number of zip bundle entries skipped due to copy errors",
		},
	)

	authDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubedeck_olap_datasource_auth_denied_total",
			Help: "Total number of requests denied by the admin permission gate",
		},
		[]string{"operation"},
	)
)
