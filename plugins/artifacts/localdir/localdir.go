// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package localdir stores result artifacts submitted by backends in a
// per-job directory on the local file system, laid out as
// <root>/<archive collection>/<job id>/<file path>.
package localdir

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
)

var log = logging.GetLogger("plugins/artifacts/localdir")

// Sink writes artifacts below a fixed root directory.
type Sink struct {
	root string
}

// New creates a Sink rooted at the given directory, creating it if needed.
func New(root string) (*Sink, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("could not create artifact root: %w", err)
	}
	return &Sink{root: abs}, nil
}

// Accept stores one artifact of a job. The submitted file path is treated
// as relative to the job's artifact directory; paths escaping it are
// rejected.
func (s *Sink) Accept(ctx context.Context, j *job.Job, filePath string, length int64, data io.Reader) error {
	rel, err := s.sanitize(filePath)
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, j.ArchiveCollection, string(j.ID))
	dest := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("could not create artifact directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("could not create artifact file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, data)
	if err != nil {
		return fmt.Errorf("could not write artifact: %w", err)
	}
	if length >= 0 && written != length {
		return fmt.Errorf("artifact %q truncated: expected %d bytes, got %d", filePath, length, written)
	}
	log.Debugf("Job %s: stored artifact %q (%d bytes)", j.ID, rel, written)
	return nil
}

func (s *Sink) sanitize(filePath string) (string, error) {
	if filePath == "" {
		return "", &cerrors.ErrInvalidRequest{Reason: "file path cannot be empty"}
	}
	rel := filepath.Clean(strings.TrimPrefix(filePath, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &cerrors.ErrInvalidRequest{Reason: fmt.Sprintf("file path %q escapes the artifact directory", filePath)}
	}
	return rel, nil
}
