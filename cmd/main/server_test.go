package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Handler(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blog", "post.html"), []byte("<p>post</p>"), 0644))

	var logs bytes.Buffer
	server := NewServer(slog.New(slog.NewTextHandler(&logs, nil)), root)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/blog/post.html")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>post</p>", string(body))
	assert.Equal(t, "no-store, no-cache", resp.Header.Get("Cache-Control"))

	resp, err = http.Get(ts.URL + "/missing.html")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Contains(t, logs.String(), "path=/blog/post.html status=200")
	assert.Contains(t, logs.String(), "path=/missing.html status=404")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"real ip", map[string]string{"X-Real-Ip": "10.0.0.1"}, "127.0.0.1:1234", "10.0.0.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "10.0.0.2, 10.0.0.3"}, "127.0.0.1:1234", "10.0.0.2"},
		{"remote addr", nil, "192.168.1.5:5555", "192.168.1.5"},
		{"no port", nil, "192.168.1.5", "192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, logger, "127.0.0.1:0", NewServer(logger, t.TempDir()))
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServe_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err = serve(context.Background(), logger, l.Addr().String(), NewServer(logger, t.TempDir()))
	assert.Error(t, err)
}
