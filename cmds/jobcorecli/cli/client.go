// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sciencecloud/jobcore/plugins/listeners/httplistener"
)

// client is a thin wrapper around the jobcore HTTP API. All calls carry the
// configured username; authentication is expected to sit in front of the
// server, not in this sample client.
type client struct {
	addr string
	user string
}

func (c *client) do(method, path string, query url.Values, body io.Reader) (*httplistener.HTTPAPIResponse, error) {
	u := strings.TrimSuffix(c.addr, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(httplistener.HeaderUser, c.user)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read HTTP response: %w", err)
	}
	var apiResp httplistener.HTTPAPIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("response is not a valid HTTP API response object: %q: %w", raw, err)
	}
	return &apiResp, nil
}

func (c *client) get(path string, query url.Values) (*httplistener.HTTPAPIResponse, error) {
	return c.do(http.MethodGet, path, query, nil)
}

func (c *client) post(path string, body interface{}) (*httplistener.HTTPAPIResponse, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return c.do(http.MethodPost, path, nil, bytes.NewReader(encoded))
}

func (c *client) delete(path string) (*httplistener.HTTPAPIResponse, error) {
	return c.do(http.MethodDelete, path, nil, nil)
}

// decodeData re-decodes the generic Data field of an API response into a
// typed structure.
func decodeData(resp *httplistener.HTTPAPIResponse, out interface{}) error {
	if resp.Error != nil {
		return fmt.Errorf("server error: %s", *resp.Error)
	}
	encoded, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

// printResponse pretty-prints an API response envelope.
func printResponse(stdout io.Writer, resp *httplistener.HTTPAPIResponse) error {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", " ")
	if err := encoder.Encode(resp); err != nil {
		return fmt.Errorf("cannot re-encode API response object: %w", err)
	}
	_, err := io.Copy(stdout, buffer)
	return err
}
