package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/recordbase/internal/auth"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/mcp"
	"github.com/rpggio/recordbase/internal/storage"
	"github.com/stretchr/testify/require"
)

type testDispatcher struct {
	method string
	actor  access.Actor
	err    error
}

func (d *testDispatcher) Handle(_ context.Context, actor access.Actor, method string, _ json.RawMessage) (any, error) {
	d.method = method
	d.actor = actor
	if d.err != nil {
		return nil, d.err
	}
	return map[string]string{"user": actor.UserID}, nil
}

type testFiles map[string]string

func (f testFiles) Open(_ context.Context, key string) (*storage.Object, error) {
	body, ok := f[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{ReadCloser: io.NopCloser(strings.NewReader(body)), Size: int64(len(body)), ContentType: "text/plain"}, nil
}

func newTestTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(auth.Config{Secret: "test-secret"})
	require.NoError(t, err)
	return tokens
}

func postRPC(t *testing.T, url, token, body string) (*http.Response, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out Response
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHTTPServer_RPC(t *testing.T) {
	tokens := newTestTokens(t)
	dispatcher := &testDispatcher{}
	server := httptest.NewServer(NewServer(Options{
		Dispatcher: dispatcher,
		Auth:       auth.Middleware(tokens, nil),
	}))
	t.Cleanup(server.Close)

	token, err := tokens.Issue(auth.Identity{Actor: access.Actor{UserID: "alice"}})
	require.NoError(t, err)

	resp, out := postRPC(t, server.URL, token, `{"jsonrpc":"2.0","method":"list_instances","id":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	require.Nil(t, out.Error)
	require.Equal(t, "list_instances", dispatcher.method)
	require.Equal(t, "alice", dispatcher.actor.UserID)

	resp, _ = postRPC(t, server.URL, "", `{"jsonrpc":"2.0","method":"list_instances","id":2}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_RPCErrors(t *testing.T) {
	dispatcher := &testDispatcher{}
	server := httptest.NewServer(NewServer(Options{
		Dispatcher: dispatcher,
		Auth:       auth.Middleware(auth.Static(access.Actor{UserID: "dev"}), nil),
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"parse error", nil, `{"jsonrpc":`, ErrParseCode},
		{"invalid request", nil, `{"jsonrpc":"1.0","method":"x","id":1}`, ErrInvalidReq},
		{"access denied", mcp.MapError(entry.ErrAccessDenied), `{"jsonrpc":"2.0","method":"get_entry","id":1}`, ErrAccessDenied},
		{"not found", mcp.MapError(entry.ErrNotFound), `{"jsonrpc":"2.0","method":"get_entry","id":1}`, ErrNotFound},
		{"unknown method", mcp.MapError(mcp.ErrUnknownMethod), `{"jsonrpc":"2.0","method":"nope","id":1}`, ErrMethodNotFound},
		{"internal", errors.New("disk on fire"), `{"jsonrpc":"2.0","method":"get_entry","id":1}`, ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher.err = tt.err
			resp, out := postRPC(t, server.URL, "", tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.NotNil(t, out.Error)
			require.Equal(t, tt.code, out.Error.Code)
			require.NotContains(t, out.Error.Message, "disk on fire")
		})
	}
}

func TestHTTPServer_Health(t *testing.T) {
	server := httptest.NewServer(NewServer(Options{}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	server := httptest.NewServer(NewServer(Options{Gatherer: reg}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "test_total 1")
}

func TestHTTPServer_Files(t *testing.T) {
	server := httptest.NewServer(NewServer(Options{
		Files: testFiles{"abc": "hello"},
		Auth:  auth.Middleware(auth.Static(access.Actor{UserID: "dev"}), nil),
	}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/files/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))

	resp, err = http.Get(server.URL + "/files/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
