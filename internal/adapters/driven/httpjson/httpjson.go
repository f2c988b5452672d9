// Package httpjson sends JSON requests to AI provider APIs and turns
// non-OK replies into StatusError values.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error reply is read.
const maxErrorBody = 64 * 1024

// StatusError is a non-OK reply from a provider.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Message)
}

// Client talks to one provider's base URL.
type Client struct {
	HTTP     *http.Client
	BaseURL  string
	Provider string

	// Header is added to every request.
	Header http.Header

	// ErrorMessage extracts the message from an error reply body. When nil,
	// or when it returns "", the trimmed body is used.
	ErrorMessage func(body []byte) string
}

// New creates a client. The base URL loses any trailing slash.
func New(provider, baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		HTTP:     client,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Provider: provider,
		Header:   make(http.Header),
	}
}

// Post sends body as JSON to path. On an OK reply the caller owns and
// closes the response body; any other status is returned as *StatusError.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.post(ctx, path, body, "application/json")
}

// Stream is Post for endpoints that reply with server-sent events.
func (c *Client) Stream(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.post(ctx, path, body, "text/event-stream")
}

// PostJSON posts body and decodes an OK reply into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ping issues a GET to path and expects an OK reply.
func (c *Client) Ping(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create ping request: %w", c.Provider, err)
	}
	c.addHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: ping failed: %w", c.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}
	return resp, nil
}

func (c *Client) addHeaders(req *http.Request) {
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// statusError reads the reply body into a StatusError.
func (c *Client) statusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &StatusError{Provider: c.Provider, Status: resp.StatusCode, Message: "failed to read response"}
	}

	msg := ""
	if c.ErrorMessage != nil {
		msg = c.ErrorMessage(body)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Provider: c.Provider, Status: resp.StatusCode, Message: msg}
}

// ErrorField extracts the error message from replies shaped like
// {"error":"msg"} or {"error":{"message":"msg"}}. It returns "" otherwise.
func ErrorField(body []byte) string {
	var reply struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &reply) != nil || len(reply.Error) == 0 {
		return ""
	}

	var text string
	if json.Unmarshal(reply.Error, &text) == nil {
		return text
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(reply.Error, &obj) == nil {
		return obj.Message
	}
	return ""
}
