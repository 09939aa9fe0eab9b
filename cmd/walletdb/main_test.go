package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"goa.design/clue/log"

	"github.com/guildwallet/walletdb/config"
	"github.com/guildwallet/walletdb/store"
	walletmongo "github.com/guildwallet/walletdb/store/mongo"
	clientsmongo "github.com/guildwallet/walletdb/store/mongo/clients/mongo"
	"github.com/guildwallet/walletdb/store/mongo/clients/mongo/inmem"
)

// sharedClient keeps the in-memory data across commands, each of which
// closes its store on exit.
type sharedClient struct {
	*inmem.Client
}

func (sharedClient) Close(context.Context) error { return nil }

func newTestApp() *app {
	client := sharedClient{inmem.New()}
	return &app{
		loadConfig: func(string) (config.Config, error) { return config.Default(), nil },
		openClient: func(config.Config) (clientsmongo.Client, error) { return client, nil },
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDocumentCommands(t *testing.T) {
	a := newTestApp()

	out, err := execute(t, a, "put", "wallet", "wallets", `{"_id":"u1","user":"u1","publicKey":"PK1"}`)
	require.NoError(t, err)
	require.Equal(t, "u1\n", out)

	out, err = execute(t, a, "inc", "wallet", "wallets", "u1", "balance=5", "xp=0.5")
	require.NoError(t, err)
	require.Equal(t, "modified: true\n", out)
	_, err = execute(t, a, "inc", "wallet", "wallets", "u1", "balance=3")
	require.NoError(t, err)

	_, err = execute(t, a, "push", "wallet", "wallets", "u1", "items", "sword")
	require.NoError(t, err)
	_, err = execute(t, a, "push", "wallet", "wallets", "u1", "items", `{"name":"shield"}`)
	require.NoError(t, err)

	out, err = execute(t, a, "set", "wallet", "wallets", `{"_id":"u1"}`, `{"publicKey":"PK1"}`)
	require.NoError(t, err)
	require.Equal(t, "modified: false\n", out)

	out, err = execute(t, a, "get", "wallet", "wallets", "u1")
	require.NoError(t, err)
	doc, err := parseDocument(strings.TrimSpace(out))
	require.NoError(t, err)
	require.EqualValues(t, 8, doc["balance"])
	require.Equal(t, 0.5, doc["xp"])
	require.Equal(t, []any{"sword", map[string]any{"name": "shield"}}, doc["items"])

	out, err = execute(t, a, "rm", "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, "removed: true\n", out)

	_, err = execute(t, a, "get", "wallet", "wallets", "u1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "document not found")
}

func TestPutAssignsUUID(t *testing.T) {
	a := newTestApp()
	out, err := execute(t, a, "put", "guild-1", "notes", `{"text":"hello"}`)
	require.NoError(t, err)
	require.Len(t, strings.TrimSpace(out), 36)

	out, err = execute(t, a, "list", "guild-1", "notes")
	require.NoError(t, err)
	require.Contains(t, out, `"text":"hello"`)
}

func TestKeyCommands(t *testing.T) {
	a := newTestApp()
	_, err := execute(t, a, "key", "put", `{"key":"enc"}`)
	require.ErrorContains(t, err, "invalid argument")

	_, err = execute(t, a, "key", "put", `{"_id":"u1","key":"enc"}`)
	require.NoError(t, err)
	out, err := execute(t, a, "key", "get", "u1")
	require.NoError(t, err)
	require.Contains(t, out, `"key":"enc"`)
}

func TestPingCommand(t *testing.T) {
	out, err := execute(t, newTestApp(), "ping")
	require.NoError(t, err)
	require.Equal(t, "ok\n", out)
}

func TestCommandArgumentErrors(t *testing.T) {
	a := newTestApp()
	_, err := execute(t, a, "inc", "wallet", "wallets", "u1", "balance")
	require.ErrorContains(t, err, "want field=number")
	_, err = execute(t, a, "put", "wallet", "wallets", "not json")
	require.ErrorContains(t, err, "invalid document")
	_, err = execute(t, a, "get", "wallet")
	require.Error(t, err)
}

func TestHealthMux(t *testing.T) {
	s, err := walletmongo.NewStore(walletmongo.Options{Client: inmem.New()})
	require.NoError(t, err)
	mux := healthMux(s)

	for _, path := range []string{"/livez", "/healthz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	require.NoError(t, s.Close(context.Background()))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// closeCounter counts Close calls and closes the wrapped client.
type closeCounter struct {
	*inmem.Client
	closes atomic.Int32
}

func (c *closeCounter) Close(ctx context.Context) error {
	c.closes.Add(1)
	return c.Client.Close(ctx)
}

func TestServeClosesStoreOnCancel(t *testing.T) {
	client := &closeCounter{Client: inmem.New()}
	a := &app{
		loadConfig: func(string) (config.Config, error) { return config.Default(), nil },
		openClient: func(config.Config) (clientsmongo.Client, error) { return client, nil },
	}
	ctx, cancel := context.WithCancel(log.Context(context.Background()))
	errc := make(chan error, 1)
	go func() { errc <- a.serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, client.closes.Load(), "store stays open while serving")
	require.NoError(t, client.Ping(context.Background()))
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.Equal(t, int32(1), client.closes.Load())

	s, err := walletmongo.NewStore(walletmongo.Options{Client: client})
	require.NoError(t, err)
	_, err = s.FindDocuments(context.Background(), "wallet", "wallets")
	require.ErrorIs(t, err, store.ErrClosed)
}

func TestServeWithoutHealthServer(t *testing.T) {
	client := &closeCounter{Client: inmem.New()}
	a := &app{
		loadConfig: func(string) (config.Config, error) { return config.Default(), nil },
		openClient: func(config.Config) (clientsmongo.Client, error) { return client, nil },
	}
	ctx, cancel := context.WithCancel(log.Context(context.Background()))
	cancel()
	require.NoError(t, a.serve(ctx, ""))
	require.Equal(t, int32(1), client.closes.Load())
}

func TestParseValue(t *testing.T) {
	require.Equal(t, "sword", parseValue("sword"))
	require.Equal(t, int32(3), parseValue("3"))
	require.Equal(t, []any{"a", "b"}, parseValue(`["a","b"]`))
}
