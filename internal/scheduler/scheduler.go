package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/steerclearwm/steerclear/internal/eta"
	"github.com/steerclearwm/steerclear/internal/models"
	"github.com/steerclearwm/steerclear/internal/observability"
	"github.com/steerclearwm/steerclear/internal/storage"
)

var (
	// ErrNoSchedule is the single failure signal for a scheduling
	// attempt: the oracle was unreachable or its reply untrustworthy.
	// Callers must not persist anything when they see it.
	ErrNoSchedule = errors.New("unable to compute schedule")
	// ErrServiceClosed means the timelock is off and no rides are taken.
	ErrServiceClosed = errors.New("ride service is closed")
)

// DefaultPickupOffset is the assumed shuttle arrival window when the
// queue is empty: wherever the shuttle is, it reaches the pickup within
// this long. A service-level assumption, not a derived quantity; the
// config layer applies it when PICKUP_OFFSET is unset.
const DefaultPickupOffset = 10 * time.Minute

// Service chains each new ride after the current queue tail. The one
// invariant it protects: the shuttle cannot be in two places at once,
// so a new pickup happens no earlier than the prior dropoff plus the
// travel time to get there.
type Service struct {
	Store  storage.RideStore
	Source eta.Source

	// OnCampus classifies a coordinate for ride tagging; nil disables
	// tagging (rides default to off campus).
	OnCampus func(models.Coord) bool

	Timelock *Timelock

	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time

	// PickupOffset is the arrival window used against an empty queue,
	// taken as configured. Zero means the shuttle is assumed already
	// at the pickup; the config layer owns the default.
	PickupOffset time.Duration

	// mu serializes read-tail / plan / append. Two simultaneous hails
	// must not both chain off the same tail; with a single shuttle and
	// a single process this mutex is the serialization guarantee the
	// queue needs.
	mu sync.Mutex
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Plan computes the schedule for a request against the current queue
// tail without persisting anything.
func (s *Service) Plan(ctx context.Context, req models.RideRequest) (models.Schedule, error) {
	last, err := s.Store.LastRide(ctx)
	if err != nil {
		return models.Schedule{}, err
	}
	return s.plan(ctx, last, req)
}

// plan is the ETA chain. Queue empty: one 1×1 leg pickup→dropoff and a
// fixed arrival offset. Queue non-empty: two aligned legs in one oracle
// call, origins [tailDropoff, pickup] against destinations
// [pickup, dropoff]; leg i is read from matrix[i][i], so leg 0 is
// tailDropoff→pickup and leg 1 is pickup→dropoff. The oracle returns
// the full cross product; the off-diagonal entries are validated but
// unused.
func (s *Service) plan(ctx context.Context, last *models.Ride, req models.RideRequest) (models.Schedule, error) {
	if last == nil {
		matrix, err := s.Source.Legs(ctx, []models.Coord{req.Pickup}, []models.Coord{req.Dropoff})
		if err != nil {
			observability.ScheduleFailures.Inc()
			return models.Schedule{}, fmt.Errorf("%w: %v", ErrNoSchedule, err)
		}
		travel := matrix[0][0]
		pickup := s.now().Add(s.PickupOffset)
		return models.Schedule{
			PickupTime:  pickup,
			TravelTime:  travel,
			DropoffTime: pickup.Add(time.Duration(travel) * time.Second),
		}, nil
	}

	matrix, err := s.Source.Legs(ctx,
		[]models.Coord{last.Dropoff, req.Pickup},
		[]models.Coord{req.Pickup, req.Dropoff})
	if err != nil {
		observability.ScheduleFailures.Inc()
		return models.Schedule{}, fmt.Errorf("%w: %v", ErrNoSchedule, err)
	}
	toPickup := matrix[0][0]
	travel := matrix[1][1]
	pickup := last.DropoffTime.Add(time.Duration(toPickup) * time.Second)
	return models.Schedule{
		PickupTime:  pickup,
		TravelTime:  travel,
		DropoffTime: pickup.Add(time.Duration(travel) * time.Second),
	}, nil
}

// Enqueue plans a schedule for the request and appends the resulting
// ride to the queue. The tail read, the plan, and the append happen
// under one lock; on any failure nothing is persisted.
func (s *Service) Enqueue(ctx context.Context, req models.RideRequest) (*models.Ride, error) {
	if s.Timelock != nil && !s.Timelock.On() {
		return nil, ErrServiceClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.Store.LastRide(ctx)
	if err != nil {
		return nil, err
	}
	sched, err := s.plan(ctx, last, req)
	if err != nil {
		return nil, err
	}

	ride := &models.Ride{
		ID:            models.NewID(),
		RiderID:       req.RiderID,
		NumPassengers: req.NumPassengers,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		PickupTime:    sched.PickupTime,
		TravelTime:    sched.TravelTime,
		DropoffTime:   sched.DropoffTime,
		OnCampus:      s.onCampus(req),
		CreatedAt:     s.now(),
	}
	if err := s.Store.SaveRide(ctx, ride); err != nil {
		return nil, err
	}
	observability.SchedulesTotal.Inc()
	observability.QueueLength.Inc()
	return ride, nil
}

// SyncQueueLength resets the queue length gauge from the store. Called
// at process start so the gauge survives restarts against a durable
// queue; from then on Enqueue and ride deletion keep it incremental.
func (s *Service) SyncQueueLength(ctx context.Context) error {
	rides, err := s.Store.ListRides(ctx)
	if err != nil {
		return err
	}
	observability.QueueLength.Set(float64(len(rides)))
	return nil
}

// A ride counts as on campus when both endpoints are inside the fence.
func (s *Service) onCampus(req models.RideRequest) bool {
	if s.OnCampus == nil {
		return false
	}
	return s.OnCampus(req.Pickup) && s.OnCampus(req.Dropoff)
}
