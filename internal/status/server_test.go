package status

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// connectClient dials the status server and blocks until the connection is up.
func connectClient(t *testing.T, port int) *socket.Socket {
	t.Helper()

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("http://127.0.0.1:%d", port), opts)
	io := manager.Socket("/", opts)
	t.Cleanup(func() { io.Disconnect() })

	connected := make(chan struct{})
	io.On(types.EventName("connect"), func(...any) {
		close(connected)
	})
	io.Connect()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected to the status server")
	}
	return io
}

func TestServer_RejectsNonPositivePort(t *testing.T) {
	_, err := NewServer(context.Background(), 0)
	require.Error(t, err)
}

func TestServer_BroadcastReachesConnectedClient(t *testing.T) {
	port := freePort(t)
	server, err := NewServer(context.Background(), port)
	require.NoError(t, err)
	defer server.Close()

	io := connectClient(t, port)

	received := make(chan any, 1)
	io.On(types.EventName(EventJobStarted), func(data ...any) {
		if len(data) > 0 {
			received <- data[0]
		}
	})

	// The server registers the client asynchronously after the handshake.
	require.Eventually(t, func() bool { return server.ClientCount() == 1 },
		5*time.Second, 20*time.Millisecond)

	server.Broadcast(EventJobStarted, map[string]any{
		"run":      "abc123",
		"instance": "job.tests[python=3.11]",
	})

	select {
	case payload := <-received:
		m, ok := payload.(map[string]any)
		require.True(t, ok, "payload should decode as a map, got %T", payload)
		assert.Equal(t, "abc123", m["run"])
		assert.Equal(t, "job.tests[python=3.11]", m["instance"])
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast never reached the client")
	}
}

func TestServer_DisconnectRemovesClient(t *testing.T) {
	port := freePort(t)
	server, err := NewServer(context.Background(), port)
	require.NoError(t, err)
	defer server.Close()

	io := connectClient(t, port)
	require.Eventually(t, func() bool { return server.ClientCount() == 1 },
		5*time.Second, 20*time.Millisecond)

	io.Disconnect()
	require.Eventually(t, func() bool { return server.ClientCount() == 0 },
		5*time.Second, 20*time.Millisecond)
}
