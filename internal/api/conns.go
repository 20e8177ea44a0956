package api

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks open log-stream websockets per login session (bearer token).
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty registry.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Register adds conn under the session's token.
func (m *ConnManager) Register(token, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[token]; !exists {
		m.active[token] = make(map[string]*websocket.Conn)
	}
	m.active[token][connID] = conn
	slog.Debug("Log stream registered", "conn_id", connID)
}

// Unregister removes conn if it is still the one registered under connID.
func (m *ConnManager) Unregister(token, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conns, ok := m.active[token]; ok {
		if current, exists := conns[connID]; exists && current == conn {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(m.active, token)
			}
			slog.Debug("Log stream unregistered", "conn_id", connID)
		}
	}
}

// CloseSession closes every stream opened with token.
func (m *ConnManager) CloseSession(token string) {
	m.mu.Lock()
	conns := m.active[token]
	delete(m.active, token)
	m.mu.Unlock()

	for id, conn := range conns {
		_ = conn.Close(websocket.StatusPolicyViolation, "logged out")
		slog.Info("Log stream closed on logout", "conn_id", id)
	}
}

// CloseAll closes every open stream, e.g. on shutdown.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	active := m.active
	m.active = make(map[string]map[string]*websocket.Conn)
	m.mu.Unlock()

	for _, conns := range active {
		for _, conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
}

// Count returns the number of open streams.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, conns := range m.active {
		n += len(conns)
	}
	return n
}
