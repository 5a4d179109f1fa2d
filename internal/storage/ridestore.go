package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/steerclearwm/steerclear/internal/models"
)

var ErrNotFound = errors.New("ride not found")

// RideStore defines persistence operations for the ride queue.
// The queue is an ordered log: LastRide returns the tail (the ride
// most recently appended), which is the anchor for the next schedule.
type RideStore interface {
	SaveRide(ctx context.Context, r *models.Ride) error
	LastRide(ctx context.Context) (*models.Ride, error)
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	ListRides(ctx context.Context) ([]*models.Ride, error)
	DeleteRide(ctx context.Context, id string) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	rides map[string]*models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride)}
}

func (m *MemoryStore) SaveRide(_ context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.rides[r.ID] = r
	return nil
}

func (m *MemoryStore) LastRide(_ context.Context) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return nil, nil
	}
	return m.rides[m.order[len(m.order)-1]], nil
}

func (m *MemoryStore) GetRide(_ context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) ListRides(_ context.Context) ([]*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Ride, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rides[id])
	}
	return out, nil
}

func (m *MemoryStore) DeleteRide(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return ErrNotFound
	}
	delete(m.rides, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
