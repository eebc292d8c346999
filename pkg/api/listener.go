// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package api

import (
	"context"
)

// Listener defines the interface for an API listener. This is used to
// implement different API transports, like HTTP or gRPC.
type Listener interface {
	// Serve is responsible for starting the listener and calling the API
	// methods to communicate with the server. The context is used for
	// cancellation, which should be handled by the listener to do a
	// graceful shutdown.
	Serve(ctx context.Context, a *API) error
}
