// Package live provides the websocket turn channel for simulator sessions.
package live

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the one active connection per simulator session.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a session.
func (m *SessionManager) GetActive(sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[sessionID]
}

// Register makes conn the session's connection, closing any previous one.
func (m *SessionManager) Register(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	existing, exists := m.active[sessionID]
	m.active[sessionID] = conn
	m.mu.Unlock()

	if exists && existing != conn {
		// The close handshake waits for the peer, so it runs off the caller.
		go func() {
			_ = existing.Close(websocket.StatusPolicyViolation, "session opened elsewhere")
		}()
	}
	slog.Info("Live session registered", "session_id", sessionID)
}

// Unregister removes conn if it is still the session's connection.
func (m *SessionManager) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[sessionID]; exists && current == conn {
		delete(m.active, sessionID)
		slog.Info("Live session unregistered", "session_id", sessionID)
	}
}

// Count returns the number of active connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}
