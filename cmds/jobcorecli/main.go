// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"fmt"
	"os"

	"github.com/sciencecloud/jobcore/cmds/jobcorecli/cli"
)

// Unauthenticated, unencrypted sample HTTP client for jobcore. Requires the
// `httplistener` plugin for the API listener.
//
// Usage examples:
// Start a job with the provided job descriptor from a JSON file
//   ./jobcorecli start < job.json
//
// Get the status of a job whose ID is e7cbf1...
//   ./jobcorecli get e7cbf1...
//
// Follow the output of a job until it completes:
//   ./jobcorecli follow e7cbf1...

func main() {
	if err := cli.CLIMain(os.Args[0], os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
