// Package status exposes a run's progress while it happens: a socket.io
// event stream for dashboards and a plain HTTP health endpoint. Both are off
// unless a port is configured.
package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"

	"github.com/gridci/gridci/internal/ctxlog"
)

// Server pushes run lifecycle events to connected socket.io clients.
type Server struct {
	httpServer *types.HttpServer
	io         *socket.Server

	mu      sync.Mutex
	clients map[string]*socket.Socket
}

// NewServer creates a status server listening on the given port.
func NewServer(ctx context.Context, port int) (*Server, error) {
	if port <= 0 {
		return nil, fmt.Errorf("status server port must be positive, got %d", port)
	}
	logger := ctxlog.FromContext(ctx)

	s := &Server{
		clients: make(map[string]*socket.Socket),
	}

	s.httpServer = types.CreateServer(nil)
	s.io = socket.NewServer(s.httpServer, nil)

	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		id := string(client.Id())

		s.mu.Lock()
		s.clients[id] = client
		s.mu.Unlock()
		logger.Debug("Status client connected.", "sid", id)

		client.On("disconnect", func(...any) {
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()
			logger.Debug("Status client disconnected.", "sid", id)
		})
	})

	addr := fmt.Sprintf(":%d", port)
	s.httpServer.Listen(addr, nil)
	logger.Info("📡 Status server listening", "address", fmt.Sprintf("http://localhost%s", addr))

	return s, nil
}

// Broadcast sends an event with a payload to every connected client.
func (s *Server) Broadcast(event string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, client := range s.clients {
		client.Emit(event, payload)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close shuts the socket.io server and its HTTP listener down.
func (s *Server) Close() {
	if s.io != nil {
		s.io.Close(nil)
	}
	if s.httpServer != nil {
		s.httpServer.Close(nil)
	}
}
