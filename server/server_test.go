// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func hello(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "hello")
}

func TestServer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	require := require.New(t)

	cfg := NewDefaultConfig()
	cfg.Port = 0
	s, err := New(cfg, logging.NoLog{})
	require.NoError(err)
	require.NoError(s.AddRoute(http.HandlerFunc(hello), "movevm", "/hello"))
	require.ErrorIs(s.AddRoute(http.HandlerFunc(hello), "movevm", "/hello"), errRouteExists)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(s.URL("movevm") + "/hello")
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal("hello", string(body))

	resp, err = client.Get(s.URL("movevm") + "/missing")
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusNotFound, resp.StatusCode)

	cancel()
	require.NoError(<-done)
}

func TestFilterInvalidHosts(t *testing.T) {
	tests := []struct {
		name         string
		allowedHosts []string
		host         string
		wantCode     int
	}{
		{name: "ip", allowedHosts: []string{"localhost"}, host: "127.0.0.1:9650", wantCode: http.StatusOK},
		{name: "allowed", allowedHosts: []string{"localhost"}, host: "LocalHost:9650", wantCode: http.StatusOK},
		{name: "denied", allowedHosts: []string{"localhost"}, host: "example.com", wantCode: http.StatusForbidden},
		{name: "wildcard", allowedHosts: []string{wildcard}, host: "example.com", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := filterInvalidHosts(http.HandlerFunc(hello), tt.allowedHosts)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestLimitBody(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		_, _ = w.Write(body)
	})

	tests := []struct {
		name     string
		limit    int64
		size     int
		wantCode int
	}{
		{name: "under", limit: 16, size: 16, wantCode: http.StatusOK},
		{name: "over", limit: 16, size: 17, wantCode: http.StatusRequestEntityTooLarge},
		{name: "disabled", limit: 0, size: 1 << 10, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", tt.size)))
			w := httptest.NewRecorder()
			limitBody(echo, tt.limit).ServeHTTP(w, req)
			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}
