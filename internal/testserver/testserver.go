// Package testserver runs the full HTTP stack against an in-memory database for
// functional tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/recordbase/internal/app"
	"github.com/rpggio/recordbase/internal/auth"
	"github.com/rpggio/recordbase/internal/config"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/sqlite"
	"github.com/rpggio/recordbase/internal/transport"
	"github.com/stretchr/testify/require"
)

const Secret = "functional-test-secret"

type TestServer struct {
	Server *httptest.Server
	App    *app.App
}

// New starts a server with auth enabled. configure may adjust the config before
// the app is built.
func New(t *testing.T, configure ...func(*config.Config)) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.DB.Path = ":memory:"
	cfg.Auth.Enabled = true
	cfg.Auth.Secret = Secret
	for _, fn := range configure {
		fn(&cfg)
	}

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(context.Background()))

	a, err := app.New(context.Background(), cfg, nil, app.WithDB(db))
	require.NoError(t, err)

	server := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return &TestServer{Server: server, App: a}
}

// Token signs a bearer token for actor.
func (ts *TestServer) Token(t *testing.T, actor access.Actor) string {
	t.Helper()
	token, err := ts.App.Tokens.Issue(auth.Identity{Actor: actor})
	require.NoError(t, err)
	return token
}

// Call posts a JSON-RPC request to /rpc. The result is decoded into out when the
// call succeeds; the JSON-RPC error is returned otherwise.
func (ts *TestServer) Call(t *testing.T, token, method string, params, out any) *transport.Error {
	t.Helper()

	payload := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpc struct {
		Result json.RawMessage  `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	if rpc.Error != nil {
		return rpc.Error
	}
	if out != nil {
		require.NoError(t, json.Unmarshal(rpc.Result, out))
	}
	return nil
}

// MustCall is Call that fails the test on a JSON-RPC error.
func (ts *TestServer) MustCall(t *testing.T, token, method string, params, out any) {
	t.Helper()
	rpcErr := ts.Call(t, token, method, params, out)
	require.Nil(t, rpcErr, "%s failed: %+v", method, rpcErr)
}
