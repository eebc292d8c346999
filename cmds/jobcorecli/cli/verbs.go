// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sciencecloud/jobcore/pkg/job"
)

func run(c *client, stdout io.Writer) error {
	verb := strings.ToLower(flagSet.Arg(0))
	if verb == "" {
		return fmt.Errorf("missing command, see --help")
	}
	switch verb {
	case "start":
		return start(c, stdout)
	case "get":
		return get(c, stdout)
	case "list":
		return list(c, stdout)
	case "cancel":
		return cancel(c, stdout)
	case "follow":
		return followJob(c, stdout)
	case "vnc":
		return querySession(c, stdout, "vnc")
	case "web":
		return querySession(c, stdout, "web")
	case "machine-types":
		return machineTypes(c, stdout)
	case "version":
		return version(c, stdout)
	default:
		return fmt.Errorf("invalid command %q, see --help", verb)
	}
}

func start(c *client, stdout io.Writer) error {
	var raw []byte
	var err error
	if flagSet.Arg(1) == "" {
		fmt.Fprintf(os.Stderr, "Reading from stdin...\n")
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(flagSet.Arg(1))
	}
	if err != nil {
		return fmt.Errorf("failed to read job descriptor: %w", err)
	}

	var descriptor json.RawMessage
	if *flagYAML {
		descriptor, err = yamlToJSON(raw)
	} else {
		err = json.Unmarshal(raw, &descriptor)
	}
	if err != nil {
		return fmt.Errorf("failed to parse job descriptor: %w", err)
	}

	resp, err := c.post("/jobs", map[string]interface{}{
		"Descriptor": descriptor,
		"Project":    *flagProject,
	})
	if err != nil {
		return err
	}
	if err := printResponse(stdout, resp); err != nil {
		return err
	}
	if !*flagWait {
		return nil
	}

	var data struct {
		JobID string
	}
	if err := decodeData(resp, &data); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\nWaiting for job %s to complete...\n", data.JobID)
	return wait(c, stdout, data.JobID)
}

// wait polls the job until it reaches a terminal state and prints the final
// response. A job that did not succeed turns into a non-zero exit status.
func wait(c *client, stdout io.Writer, jobID string) error {
	for {
		resp, err := c.get("/jobs/"+url.PathEscape(jobID), nil)
		if err != nil {
			return err
		}
		var data struct {
			Job struct {
				CurrentState job.State
				Status       string
			}
		}
		if err := decodeData(resp, &data); err != nil {
			return err
		}
		if data.Job.CurrentState.IsTerminal() {
			fmt.Fprintln(stdout)
			if err := printResponse(stdout, resp); err != nil {
				return err
			}
			if data.Job.CurrentState != job.StateSuccess {
				return fmt.Errorf("job %s finished as %s: %s", jobID, data.Job.CurrentState, data.Job.Status)
			}
			return nil
		}
		time.Sleep(jobWaitPoll)
	}
}

func jobIDArg() (string, error) {
	id := flagSet.Arg(1)
	if id == "" {
		return "", fmt.Errorf("missing job ID, see --help")
	}
	return url.PathEscape(id), nil
}

func get(c *client, stdout io.Writer) error {
	id, err := jobIDArg()
	if err != nil {
		return err
	}
	resp, err := c.get("/jobs/"+id, nil)
	if err != nil {
		return err
	}
	return printResponse(stdout, resp)
}

func list(c *client, stdout io.Writer) error {
	query := url.Values{}
	if len(*flagStates) > 0 {
		query.Set("states", strings.Join(*flagStates, ","))
	}
	if *flagApplication != "" {
		query.Set("application", *flagApplication)
	}
	resp, err := c.get("/jobs", query)
	if err != nil {
		return err
	}
	return printResponse(stdout, resp)
}

func cancel(c *client, stdout io.Writer) error {
	id, err := jobIDArg()
	if err != nil {
		return err
	}
	resp, err := c.delete("/jobs/" + id)
	if err != nil {
		return err
	}
	return printResponse(stdout, resp)
}

// followJob polls the follow endpoint and copies new log data to stdout and
// stderr until the job reaches a terminal state.
func followJob(c *client, stdout io.Writer) error {
	id, err := jobIDArg()
	if err != nil {
		return err
	}
	var stdoutOffset, stderrOffset int
	var lastState job.State
	for {
		query := url.Values{}
		query.Set("stdout_offset", strconv.Itoa(stdoutOffset))
		query.Set("stderr_offset", strconv.Itoa(stderrOffset))
		resp, err := c.get("/jobs/"+id+"/follow", query)
		if err != nil {
			return err
		}
		var data struct {
			Streams struct {
				Stdout           string
				Stderr           string
				NextStdoutOffset int
				NextStderrOffset int
				State            job.State
				Status           string
			}
		}
		if err := decodeData(resp, &data); err != nil {
			return err
		}
		streams := data.Streams
		fmt.Fprint(stdout, streams.Stdout)
		fmt.Fprint(os.Stderr, streams.Stderr)
		if streams.State != lastState {
			fmt.Fprintf(os.Stderr, "-- job is %s: %s\n", streams.State, streams.Status)
			lastState = streams.State
		}
		stdoutOffset = streams.NextStdoutOffset
		stderrOffset = streams.NextStderrOffset
		if streams.State.IsTerminal() {
			if streams.State != job.StateSuccess {
				return fmt.Errorf("job finished as %s", streams.State)
			}
			return nil
		}
		time.Sleep(jobWaitPoll)
	}
}

func querySession(c *client, stdout io.Writer, kind string) error {
	id, err := jobIDArg()
	if err != nil {
		return err
	}
	resp, err := c.get("/jobs/"+id+"/"+kind, nil)
	if err != nil {
		return err
	}
	return printResponse(stdout, resp)
}

func machineTypes(c *client, stdout io.Writer) error {
	resp, err := c.get("/jobs/machine-types", nil)
	if err != nil {
		return err
	}
	return printResponse(stdout, resp)
}

func version(c *client, stdout io.Writer) error {
	resp, err := c.get("/version", nil)
	if err != nil {
		return err
	}
	return printResponse(stdout, resp)
}

// yamlToJSON converts a YAML document into its JSON encoding.
func yamlToJSON(raw []byte) (json.RawMessage, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML rewrites map[interface{}]interface{} nodes, which the JSON
// encoder cannot handle, into string-keyed maps.
func normalizeYAML(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i := range v {
			v[i] = normalizeYAML(v[i])
		}
		return v
	default:
		return v
	}
}
