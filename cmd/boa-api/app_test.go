package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/BoaTracking/internal/api/httpapi"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/services/alerts"
	"github.com/BearBump/BoaTracking/internal/services/claims"
	"github.com/BearBump/BoaTracking/internal/services/packages"
	"github.com/BearBump/BoaTracking/internal/services/preregistrations"
	"github.com/BearBump/BoaTracking/internal/services/returns"
	"github.com/BearBump/BoaTracking/internal/services/users"
	"github.com/BearBump/BoaTracking/internal/storage/sqlitestore"
)

func newTestAPI(t *testing.T) *httpapi.API {
	t.Helper()
	st, err := sqlitestore.New(filepath.Join(t.TempDir(), "boa.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	clk := clock.NewFixed(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC))
	pkgs := packages.New(st, nil, 0, nil, clk)
	return httpapi.New(httpapi.Services{
		Packages:         pkgs,
		Alerts:           alerts.New(st, clk, 0),
		Preregistrations: preregistrations.New(st, nil, clk),
		Returns:          returns.New(st, nil, pkgs, clk),
		Claims:           claims.New(st, clk),
		Users:            users.New(st, nil, nil, clk, users.Settings{JWTSecret: []byte("test")}),
	}, st)
}

func TestRunBoaAPI_SwaggerServed(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runBoaAPI(ctx, boaAPIOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: sw,
			onListen:    func(addr string) { addrCh <- addr },
		}, newTestAPI(t))
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for listener")
	}

	resp, err := http.Get("http://" + addr + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "\"swagger\"")

	resp, err = http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting server to stop")
	}
}

func TestRunBoaAPI_MissingSwagger(t *testing.T) {
	err := runBoaAPI(context.Background(), boaAPIOpts{
		httpAddr:    "127.0.0.1:0",
		swaggerPath: filepath.Join(t.TempDir(), "nope.json"),
	}, newTestAPI(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "swagger file not found")
}
