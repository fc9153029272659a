// Package supa is a thin PostgREST-flavored client for the project database.
// It covers what the harness needs: filtered table reads, exact counts, row
// inserts and remote procedure calls. Requests authenticate with the
// service-role key, so row-level security is bypassed the same way the
// original harness bypassed it for verification queries.
package supa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/retry"
)

const restPrefix = "/rest/v1"

// Client issues PostgREST requests against a configured database URL.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	policy     retry.Policy
	log        logrus.FieldLogger
}

// New creates a Client for the given database URL and service-role key.
func New(baseURL, serviceKey string, policy retry.Policy, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 30 * time.Second},
		policy:     policy,
		log:        log,
	}
}

// From starts a query builder against a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// RPC invokes a named server-side procedure with the given parameters,
// decoding the result into dest when dest is non-nil.
func (c *Client) RPC(ctx context.Context, name string, params map[string]any, dest any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpc %s: failed to encode params: %w", name, err)
	}

	raw, _, err := c.do(ctx, http.MethodPost, restPrefix+"/rpc/"+name, nil, body)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", name, err)
	}

	if dest != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("rpc %s: failed to decode result: %w", name, err)
		}
	}
	return nil
}

// Insert writes rows into a table.
func (c *Client) Insert(ctx context.Context, table string, rows any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("insert into %s: failed to encode rows: %w", table, err)
	}

	if _, _, err := c.do(ctx, http.MethodPost, restPrefix+"/"+table, nil, body); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Ping verifies the database endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodGet, restPrefix+"/", nil, nil)
	return err
}

// do runs one request under the shared retry policy, returning the body and
// the Content-Range header (which carries exact counts when requested).
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body []byte) ([]byte, string, error) {
	var (
		raw          []byte
		contentRange string
	)

	err := c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("apikey", c.serviceKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.WithError(err).WithField("path", path).Debug("database request failed, may retry")
			return err
		}
		defer resp.Body.Close()

		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("database error %d on %s %s", resp.StatusCode, method, path)
		}
		if resp.StatusCode >= 300 {
			return retry.Permanent(&StatusError{Code: resp.StatusCode, Body: string(raw)})
		}

		contentRange = resp.Header.Get("Content-Range")
		return nil
	})
	return raw, contentRange, err
}

// StatusError is a non-2xx, non-5xx database response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("database returned %d: %s", e.Code, e.Body)
}

// parseExactCount extracts the total from a "start-end/total" Content-Range.
func parseExactCount(contentRange string) (int, error) {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 || idx == len(contentRange)-1 {
		return 0, fmt.Errorf("missing count in Content-Range %q", contentRange)
	}
	total := contentRange[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("database did not return an exact count")
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("bad count in Content-Range %q: %w", contentRange, err)
	}
	return n, nil
}
