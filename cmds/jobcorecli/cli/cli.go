// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package cli

import (
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

const (
	defaultUser = "jobcorecli"
	jobWaitPoll = 2 * time.Second
)

var (
	flagSet         *flag.FlagSet
	flagAddr        *string
	flagUser        *string
	flagProject     *string
	flagWait        *bool
	flagYAML        *bool
	flagStates      *[]string
	flagApplication *string
)

func initFlags(cmd string) {
	flagSet = flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagAddr = flagSet.StringP("addr", "a", "http://localhost:8000", "jobcore server [scheme://]host:port[/basepath] to connect to")
	flagUser = flagSet.StringP("user", "u", defaultUser, "Username the API calls are made as")
	flagProject = flagSet.StringP("project", "p", "", "Project to submit the job on behalf of")
	flagWait = flagSet.BoolP("wait", "w", false, "After starting a job, wait for it to finish, and exit 0 only if it is successful")
	flagYAML = flagSet.BoolP("yaml", "Y", false, "Parse the job descriptor as YAML instead of JSON")

	// Flags for the "list" command.
	flagStates = flagSet.StringSlice("states", []string{}, "List of job states for the list command. A job must be in any of the specified states to match.")
	flagApplication = flagSet.String("application", "", "Application name filter for the list command.")

	flagSet.Usage = func() {
		fmt.Fprintf(flagSet.Output(),
			`Usage:

  jobcorecli [flags] command

Commands:
  start [file]
        start a new job using the job descriptor from the specified file
        or passed via stdin.
        when used with the -wait flag, stdout will have two JSON outputs
        for job start and completion status separated with a newline
  get id
        get the status of a job by job ID
  list [--states=RUNNING,...] [--application=name]
        list jobs by state and/or application
  cancel id
        cancel a job by job ID
  follow id
        stream the output of a job to stdout/stderr until it completes
  vnc id
        query the VNC session parameters of a running job
  web id
        query the web session parameters of a running job
  machine-types
        list the machine reservation classes the server offers
  version
        request the API version of the server

Flags:
`)
		flagSet.PrintDefaults()
	}
}

// CLIMain parses the arguments and runs the requested command, writing the
// server responses to stdout.
func CLIMain(cmd string, args []string, stdout io.Writer) error {
	initFlags(cmd)
	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	client := &client{addr: *flagAddr, user: *flagUser}
	return run(client, stdout)
}
