package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/steerclearwm/steerclear/internal/models"
)

// PortalSession represents a connected driver-portal client.
type PortalSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *PortalSession) Send(evt models.RideEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(evt)
}

// PortalRegistry holds driver-portal sessions and fans ride queue
// changes out to all of them. Sessions that fail a write are dropped.
type PortalRegistry struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	sessions map[string]*PortalSession
}

func NewPortalRegistry(logger *slog.Logger) *PortalRegistry {
	return &PortalRegistry{logger: logger, sessions: make(map[string]*PortalSession)}
}

func (r *PortalRegistry) Add(id string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &PortalSession{conn: conn}
}

func (r *PortalRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *PortalRegistry) Broadcast(evt models.RideEvent) {
	r.mu.RLock()
	targets := make(map[string]*PortalSession, len(r.sessions))
	for id, s := range r.sessions {
		targets[id] = s
	}
	r.mu.RUnlock()

	for id, s := range targets {
		if err := s.Send(evt); err != nil {
			if r.logger != nil {
				r.logger.Warn("portal send failed, dropping session", "session", id, "error", err)
			}
			r.Remove(id)
		}
	}
}

func (r *PortalRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
