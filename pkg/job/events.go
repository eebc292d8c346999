// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package job

import (
	"time"

	"github.com/sciencecloud/jobcore/pkg/types"
)

// CompletedEvent is the accounting event emitted exactly once when a job
// reaches a terminal state through a completion callback.
type CompletedEvent struct {
	JobID types.JobID
	Owner string

	// Application is the name@version of the application that ran.
	Application string

	// WallDuration is the wall time reported by the backend.
	WallDuration time.Duration

	Nodes   int
	Success bool

	EmitTime time.Time
}
