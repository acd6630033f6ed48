// Package e2e runs the Gherkin features in features/ against a live festreg
// server. Set FESTREG_BASE_URL and FESTREG_ADMIN_TOKEN to enable it.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries per-scenario HTTP state.
type TestContext struct {
	baseURL    string
	adminToken string
	client     *http.Client

	status int
	body   map[string]any
	raw    []byte

	tokens  map[string]string
	current string
	vars    map[string]string
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		client:     &http.Client{Timeout: 10 * time.Second},
		tokens:     map[string]string{},
		vars:       map[string]string{},
	}
}

// Reset clears state between scenarios.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.body = nil
	tc.raw = nil
	tc.tokens = map[string]string{}
	tc.current = ""
	tc.vars = map[string]string{}
}

// Request sends body as JSON. Non-empty token sends a bearer session.
func (tc *TestContext) Request(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.body = map[string]any{}
	if len(tc.raw) > 0 && tc.raw[0] == '{' {
		if err := json.Unmarshal(tc.raw, &tc.body); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// AsCurrent sends the request with the current participant's session.
func (tc *TestContext) AsCurrent(method, path string, body any) error {
	token, ok := tc.tokens[tc.current]
	if !ok {
		return fmt.Errorf("no session for %q", tc.current)
	}
	return tc.Request(method, path, body, map[string]string{"Authorization": "Bearer " + token})
}

func (tc *TestContext) AsAdmin(method, path string, body any) error {
	return tc.Request(method, path, body, map[string]string{"X-Admin-Token": tc.adminToken})
}

func (tc *TestContext) Status() int     { return tc.status }
func (tc *TestContext) RawBody() string { return string(tc.raw) }

func (tc *TestContext) Field(name string) (any, error) {
	v, ok := tc.body[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", name, tc.raw)
	}
	return v, nil
}

func (tc *TestContext) SetSession(name, token string) {
	tc.tokens[name] = token
	tc.current = name
}

func (tc *TestContext) Use(name string) error {
	if _, ok := tc.tokens[name]; !ok {
		return fmt.Errorf("unknown participant %q", name)
	}
	tc.current = name
	return nil
}

func (tc *TestContext) Current() string { return tc.current }

func (tc *TestContext) Remember(key, value string) { tc.vars[key] = value }

func (tc *TestContext) Recall(key string) (string, error) {
	v, ok := tc.vars[key]
	if !ok {
		return "", fmt.Errorf("nothing remembered as %q", key)
	}
	return v, nil
}
