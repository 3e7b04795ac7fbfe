package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestServer_Stops_On_Cancel(t *testing.T) {
	server := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), "127.0.0.1", 0, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Reports_Listener_Failure(t *testing.T) {
	// Given a port already taken
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	server := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), "127.0.0.1", port, http.NotFoundHandler())

	// Then Run fails instead of blocking
	err = server.Run(context.Background())
	require.Error(t, err)
}
