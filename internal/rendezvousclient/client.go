// Package rendezvousclient provides a Go SDK for talking to a rendezvous
// store node over HTTP, satisfying collectives.Store.
//
// Big idea:
//
// Instead of writing raw HTTP requests everywhere,
// we wrap them inside a clean Go API.
//
// So instead of:
//
//	http.NewRequest(...)
//	json.Marshal(...)
//
// Users can simply call:
//
//	client.Set("key", []byte("value"))
//	client.Get("key")
//
// This is called a "client library" or "SDK".
//
// It hides:
//   - HTTP details
//   - JSON encoding/decoding
//   - Error handling
//
// And exposes the collectives.Store interface directly.
package rendezvousclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Collectives keys are of the form "prefix/<rank>", "prefix/num_members",
// etc. (collectives/keylayout.go) and routinely contain '/'. Gin's default
// router matches against the already-percent-decoded request path, so a
// ':key' path segment can never carry a '/' through intact — it would
// either 404 (too many segments) or get truncated at the first '/'. Every
// key-bearing GET therefore passes its key as a query parameter instead,
// the same way the POST handlers already pass theirs in the JSON body.

// clientBuffer is added on top of the active timeout when bounding the HTTP
// request context, so the server's own timeout response (a normal, decoded
// error) has a chance to come back before the client's context cancels the
// connection out from under it.
const clientBuffer = 2 * time.Second

// Client represents a connection to ONE rendezvous node.
//
// Important:
//
// This client talks to a single node. That node is responsible for
// coordinating replication and talking to its peers — the client does not
// implement any distributed logic itself.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	timeout time.Duration
}

// New creates a new Client.
//
// baseURL example:
//
//	"http://localhost:8080"
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Timeout returns the client's currently active operation timeout.
func (c *Client) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// SetTimeout installs a new active operation timeout and returns the
// previous one. A non-positive timeout is ignored and the current one stays
// in place.
func (c *Client) SetTimeout(timeout time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior := c.timeout
	if timeout > 0 {
		c.timeout = timeout
	}
	return prior
}

// Set unconditionally installs key ↦ value.
func (c *Client) Set(key string, value []byte) error {
	_, err := c.post("/store/set", map[string]any{"key": key, "value": value}, nil)
	return err
}

// Get returns the current value for key, blocking server-side up to the
// active timeout for the key to appear.
func (c *Client) Get(key string) ([]byte, error) {
	timeout := c.Timeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout+clientBuffer)
	defer cancel()

	reqURL := fmt.Sprintf("%s/store/get?key=%s&blocking=true&timeout=%s", c.baseURL, url.QueryEscape(key), timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out struct {
		Value []byte `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Add atomically adds delta to the integer stored at key and returns the
// new value.
func (c *Client) Add(key string, delta int64) (int64, error) {
	var out struct {
		Total int64 `json:"total"`
	}
	if err := c.postInto("/store/add", map[string]any{"key": key, "delta": delta}, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// Check is a non-blocking existence test.
func (c *Client) Check(keys []string) (bool, error) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.postInto("/store/check", map[string]any{"keys": keys}, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

// Wait blocks server-side up to the active timeout until every key exists.
func (c *Client) Wait(keys []string) error {
	timeout := c.Timeout()
	path := fmt.Sprintf("/store/wait?timeout=%s", timeout)
	_, err := c.post(path, map[string]any{"keys": keys}, nil)
	return err
}

// MultiGet is Get applied to each key, in order, as one store call.
func (c *Client) MultiGet(keys []string) ([][]byte, error) {
	// /store/multiget fails at once on a missing key, so first wait, like
	// Get does, up to the active timeout for every key to exist.
	if len(keys) > 0 {
		if err := c.Wait(keys); err != nil {
			return nil, err
		}
	}
	var out struct {
		Values [][]byte `json:"values"`
	}
	if err := c.postInto("/store/multiget", map[string]any{"keys": keys}, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// MultiSet is Set applied to each (keys[i], values[i]) pair as one store
// call.
func (c *Client) MultiSet(keys []string, values [][]byte) error {
	_, err := c.post("/store/multiset", map[string]any{"keys": keys, "values": values}, nil)
	return err
}

// ─── Cluster management ───────────────────────────────────────────────────────

// JoinCluster registers a node into the cluster this client's node belongs to.
func (c *Client) JoinCluster(nodeID, address string) error {
	_, err := c.post("/cluster/join", map[string]any{"id": nodeID, "address": address}, nil)
	return err
}

// LeaveCluster removes a node from the cluster.
func (c *Client) LeaveCluster(nodeID string) error {
	_, err := c.post("/cluster/leave", map[string]any{"id": nodeID}, nil)
	return err
}

// GetRaw performs a raw GET to path and returns the response body as a
// string. Useful for endpoints like /cluster/nodes that don't fit the typed
// API.
func (c *Client) GetRaw(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout()+clientBuffer)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

// ─── HTTP transport ───────────────────────────────────────────────────────────

func (c *Client) post(path string, body any, out any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout()+clientBuffer)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *Client) postInto(path string, body any, out any) error {
	_, err := c.post(path, body, out)
	return err
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// APIError carries the HTTP status and the error message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// checkStatus converts HTTP error responses into Go errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
