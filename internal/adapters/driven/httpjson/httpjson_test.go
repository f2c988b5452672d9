package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Text string `json:"text"`
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			if r.Header.Get("X-Key") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
				return
			}
			w.Header().Set("X-Accept", r.Header.Get("Accept"))
			var in echo
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(in)
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/empty":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.Error(w, "no such endpoint", http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(server *httptest.Server) *Client {
	c := New("acme", server.URL+"/", server.Client())
	c.Header.Set("X-Key", "secret")
	return c
}

func TestNew_TrimsBaseURL(t *testing.T) {
	c := New("acme", "http://example.test/v1/", nil)

	assert.Equal(t, "http://example.test/v1", c.BaseURL)
	assert.Equal(t, http.DefaultClient, c.HTTP)
	assert.NotNil(t, c.Header)
}

func TestClient_PostJSON(t *testing.T) {
	c := newClient(echoServer(t))

	var out echo
	require.NoError(t, c.PostJSON(context.Background(), "/echo", echo{Text: "hi"}, &out))
	assert.Equal(t, "hi", out.Text)
}

func TestClient_StreamSetsAccept(t *testing.T) {
	c := newClient(echoServer(t))

	resp, err := c.Stream(context.Background(), "/echo", echo{Text: "hi"})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("X-Accept"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(body))
}

func TestClient_StatusErrors(t *testing.T) {
	server := echoServer(t)

	tests := []struct {
		name    string
		client  func() *Client
		path    string
		status  int
		message string
	}{
		{
			name:    "raw body",
			client:  func() *Client { return newClient(server) },
			path:    "/missing",
			status:  http.StatusNotFound,
			message: "no such endpoint",
		},
		{
			name:    "empty body uses status text",
			client:  func() *Client { return newClient(server) },
			path:    "/empty",
			status:  http.StatusServiceUnavailable,
			message: "Service Unavailable",
		},
		{
			name: "extracted message",
			client: func() *Client {
				c := New("acme", server.URL, server.Client())
				c.ErrorMessage = func(body []byte) string {
					var e struct {
						Error struct {
							Message string `json:"message"`
						} `json:"error"`
					}
					_ = json.Unmarshal(body, &e)
					return e.Error.Message
				}
				return c
			},
			path:    "/echo",
			status:  http.StatusUnauthorized,
			message: "bad key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client().Post(context.Background(), tt.path, echo{})
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "acme", se.Provider)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.message, se.Message)
			assert.Contains(t, err.Error(), fmt.Sprintf("acme error (status %d)", tt.status))
		})
	}
}

func TestClient_Ping(t *testing.T) {
	c := newClient(echoServer(t))

	assert.NoError(t, c.Ping(context.Background(), "/health"))

	err := c.Ping(context.Background(), "/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_PingUnreachable(t *testing.T) {
	c := New("acme", "http://127.0.0.1:1", nil)

	err := c.Ping(context.Background(), "/health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme: ping failed")
}

func TestClient_MarshalError(t *testing.T) {
	c := newClient(echoServer(t))

	_, err := c.Post(context.Background(), "/echo", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal request")
}

func TestErrorField(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"model not found"}`, "model not found"},
		{`{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`, "context length exceeded"},
		{`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, "slow down"},
		{`{"error":null}`, ""},
		{`{"other":1}`, ""},
		{`not json`, ""},
		{`{"error":42}`, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorField([]byte(tt.body)), tt.body)
	}
}
