// ABOUTME: Tests for the races API client
// ABOUTME: Runs the client against a real server handler over httptest

package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/races/internal/auth"
	"github.com/2389/races/internal/config"
	"github.com/2389/races/internal/server"
	"github.com/2389/races/internal/store"
)

const testSecret = "client-test-secret-with-32-bytes"

func newTestAPI(t *testing.T) (*httptest.Server, *store.FileStore) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fs, err := store.NewFileStore(store.FileStoreConfig{
		RacesDir:    filepath.Join(dir, "races"),
		ArchivedDir: filepath.Join(dir, "archived"),
		Logger:      logger,
	})
	require.NoError(t, err)

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)

	srv, err := server.New(server.Deps{
		Config:   &config.Config{Server: config.ServerConfig{HTTPAddr: "127.0.0.1:0"}},
		Store:    fs,
		Logger:   logger,
		Verifier: verifier,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, fs
}

func testToken(t *testing.T) string {
	t.Helper()
	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := verifier.Generate("cli-test", time.Hour)
	require.NoError(t, err)
	return token
}

func TestClient_Health(t *testing.T) {
	ts, _ := newTestAPI(t)

	assert.NoError(t, New(ts.URL).Health(context.Background()))
}

func TestClient_Lifecycle(t *testing.T) {
	ts, fs := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, fs.Create(ctx, &store.Race{ID: "race1", Name: "Race 1", Waypoints: []store.Waypoint{}}))

	c := New(ts.URL+"/", WithToken(testToken(t)))

	races, err := c.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, races, 1)

	require.NoError(t, c.Archive(ctx, "race1"))

	race, err := c.Get(ctx, "race1")
	require.NoError(t, err)
	assert.True(t, race.Archived)

	archived, err := c.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	require.NoError(t, c.Restore(ctx, "race1"))
	require.NoError(t, c.Delete(ctx, "race1"))

	_, err = c.Get(ctx, "race1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "race race1 does not exist", apiErr.Message)
}

func TestClient_ImportLeg(t *testing.T) {
	ts, _ := newTestAPI(t)

	c := New(ts.URL, WithToken(testToken(t)))
	id, err := c.ImportLeg(context.Background(), []byte(`{"_id": {"race_id": 440, "num": 2}, "race": {"name": "Clipper 2025"}, "end": {"radius": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, "clipper-2025", id)
}

func TestClient_Unauthorized(t *testing.T) {
	ts, _ := newTestAPI(t)

	err := New(ts.URL).Archive(context.Background(), "race1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "missing authorization header", apiErr.Message)
}

func TestClient_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := New(ts.URL).Health(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream exploded (502)", apiErr.Error())
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	assert.Error(t, New(url).Health(context.Background()))
}
