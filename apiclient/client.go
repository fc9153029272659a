// Package apiclient talks to the Invochat application REST API. Response
// bodies are normalized at this boundary into a single Envelope shape so
// callers never branch on raw payload structure.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/retry"
)

// Client is a session-aware HTTP client against a configured base URL.
type Client struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
	log     logrus.FieldLogger

	token string // Bearer token captured at login, when the API issues one
}

// New creates a Client. The cookie jar keeps session cookies across calls,
// matching how the original harness reused one requests session.
func New(baseURL string, policy retry.Policy, log logrus.FieldLogger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		policy: policy,
		log:    log,
	}, nil
}

// Login authenticates against /auth/login and retains the session. A bearer
// token in the response body is kept for subsequent requests; cookie-based
// sessions work through the jar without one.
func (c *Client) Login(ctx context.Context, email, password string) error {
	env, err := c.Post(ctx, "/auth/login", map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if failure, failed := env.Failure(); failed {
		return fmt.Errorf("login rejected: %s", failure)
	}

	if obj, ok := env.Object(); ok {
		for _, key := range []string{"token", "access_token"} {
			if tok, ok := obj[key].(string); ok && tok != "" {
				c.token = tok
				break
			}
		}
	}

	c.log.WithField("email", email).Info("logged in")
	return nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	env, err := c.Post(ctx, "/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	if failure, failed := env.Failure(); failed {
		return fmt.Errorf("logout rejected: %s", failure)
	}
	c.token = ""
	return nil
}

// Get issues a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Envelope, error) {
	target := path
	if len(params) > 0 {
		target = path + "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// do runs one request under the shared retry policy. Transport errors and
// 5xx responses are retried; anything else is returned as-is so callers see
// 4xx failures immediately.
func (c *Client) do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var env *Envelope
	err := c.policy.Do(ctx, func() error {
		started := time.Now()

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.WithError(err).WithField("path", path).Debug("request failed, may retry")
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 500 {
			c.log.WithFields(logrus.Fields{
				"path":   path,
				"status": resp.StatusCode,
			}).Debug("server error, may retry")
			return fmt.Errorf("server error %d on %s %s", resp.StatusCode, method, path)
		}

		env = normalize(resp.StatusCode, raw, time.Since(started))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}
