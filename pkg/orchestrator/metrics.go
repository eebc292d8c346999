// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricJobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcore_jobs_started_total",
		Help: "Number of jobs accepted by the orchestrator.",
	})

	metricJobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobcore_jobs_completed_total",
		Help: "Number of jobs that reached a terminal state, by final state.",
	}, []string{"state"})

	metricInvalidTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcore_invalid_transitions_total",
		Help: "Number of proposed state transitions rejected by the state machine.",
	})

	metricAccountingEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcore_accounting_events_total",
		Help: "Number of job completion accounting events emitted.",
	})
)
