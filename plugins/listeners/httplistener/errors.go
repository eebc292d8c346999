// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package httplistener

import (
	"errors"
	"net/http"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
)

// statusFromError maps the orchestration error taxonomy to HTTP status
// codes. Unknown errors are treated as internal.
func statusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		invalidRequest   *cerrors.ErrInvalidRequest
		appNotFound      *cerrors.ErrApplicationNotFound
		unsupportedMount *cerrors.ErrUnsupportedMount
		unknownBackend   *cerrors.ErrUnknownBackend
		invalidTransit   *cerrors.ErrInvalidTransition
		notFound         *cerrors.ErrNotFound
		unauthorized     *cerrors.ErrUnauthorized
		notSupported     *cerrors.ErrOperationNotSupported
	)
	switch {
	case errors.As(err, &invalidRequest),
		errors.As(err, &unsupportedMount),
		errors.As(err, &unknownBackend),
		errors.As(err, &notSupported):
		return http.StatusBadRequest
	case errors.As(err, &invalidTransit):
		return http.StatusConflict
	case errors.As(err, &appNotFound), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unauthorized):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
