package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/steerclearwm/steerclear/internal/models"
	"github.com/steerclearwm/steerclear/internal/observability"
	"github.com/steerclearwm/steerclear/internal/scheduler"
	"github.com/steerclearwm/steerclear/internal/storage"
)

// rideJSON is the ride resource as served to clients.
type rideJSON struct {
	ID             string    `json:"id"`
	NumPassengers  int       `json:"num_passengers"`
	StartLatitude  float64   `json:"start_latitude"`
	StartLongitude float64   `json:"start_longitude"`
	EndLatitude    float64   `json:"end_latitude"`
	EndLongitude   float64   `json:"end_longitude"`
	PickupTime     time.Time `json:"pickup_time"`
	TravelTime     int       `json:"travel_time"`
	DropoffTime    time.Time `json:"dropoff_time"`
	OnCampus       bool      `json:"on_campus"`
}

func toRideJSON(r *models.Ride) rideJSON {
	return rideJSON{
		ID:             r.ID,
		NumPassengers:  r.NumPassengers,
		StartLatitude:  r.Pickup.Lat,
		StartLongitude: r.Pickup.Lon,
		EndLatitude:    r.Dropoff.Lat,
		EndLongitude:   r.Dropoff.Lon,
		PickupTime:     r.PickupTime,
		TravelTime:     r.TravelTime,
		DropoffTime:    r.DropoffTime,
		OnCampus:       r.OnCampus,
	}
}

type createRideBody struct {
	RiderID        string  `json:"rider_id"`
	NumPassengers  int     `json:"num_passengers"`
	StartLatitude  float64 `json:"start_latitude"`
	StartLongitude float64 `json:"start_longitude"`
	EndLatitude    float64 `json:"end_latitude"`
	EndLongitude   float64 `json:"end_longitude"`
}

func (b createRideBody) validate() error {
	if b.NumPassengers < 1 || b.NumPassengers > 8 {
		return errors.New("num_passengers must be between 1 and 8")
	}
	for _, c := range []struct {
		name     string
		lat, lon float64
	}{
		{"start", b.StartLatitude, b.StartLongitude},
		{"end", b.EndLatitude, b.EndLongitude},
	} {
		if math.IsNaN(c.lat) || math.IsInf(c.lat, 0) || math.IsNaN(c.lon) || math.IsInf(c.lon, 0) {
			return errors.New(c.name + " coordinates must be finite")
		}
		if c.lat < -90 || c.lat > 90 || c.lon < -180 || c.lon > 180 {
			return errors.New(c.name + " coordinates out of range")
		}
		if c.lat == 0 && c.lon == 0 {
			return errors.New(c.name + " coordinates are required")
		}
	}
	return nil
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var body createRideBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := body.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := models.RideRequest{
		RiderID:       body.RiderID,
		NumPassengers: body.NumPassengers,
		Pickup:        models.Coord{Lat: body.StartLatitude, Lon: body.StartLongitude},
		Dropoff:       models.Coord{Lat: body.EndLatitude, Lon: body.EndLongitude},
	}

	ride, err := s.scheduler.Enqueue(r.Context(), req)
	switch {
	case errors.Is(err, scheduler.ErrServiceClosed):
		http.Error(w, "ride service is closed", http.StatusServiceUnavailable)
		return
	case errors.Is(err, scheduler.ErrNoSchedule):
		// fail closed: no ride record, no invented ETA
		http.Error(w, "unable to compute schedule", http.StatusBadGateway)
		return
	case err != nil:
		s.logger.Error("enqueue failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.announce(models.RideEvent{Type: models.RideCreated, Ride: *ride, At: time.Now()})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"ride": toRideJSON(ride)})
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	rides, err := s.store.ListRides(r.Context())
	if err != nil {
		s.logger.Error("list rides failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]rideJSON, 0, len(rides))
	for _, ride := range rides {
		out = append(out, toRideJSON(ride))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"rides": out})
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ride_id"]
	ride, err := s.store.GetRide(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get ride failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ride": toRideJSON(ride)})
}

func (s *Server) handleDeleteRide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ride_id"]
	ride, err := s.store.GetRide(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	if err == nil {
		err = s.store.DeleteRide(r.Context(), id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("delete ride failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	observability.QueueLength.Dec()
	s.announce(models.RideEvent{Type: models.RideDeleted, Ride: *ride, At: time.Now()})
	w.WriteHeader(http.StatusNoContent)
}

type timelockBody struct {
	State string `json:"state"`
}

func (s *Server) handleTimelock(w http.ResponseWriter, r *http.Request) {
	var body timelockBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state := strings.ToLower(body.State)
	if state != "on" && state != "off" {
		http.Error(w, `state must be "on" or "off"`, http.StatusBadRequest)
		return
	}
	s.timelock.Set(state == "on")
	s.logger.Info("timelock changed", "state", state)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": state})
}

var upgrader = websocket.Upgrader{}

func (s *Server) handlePortalWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.portal.Add(models.NewID(), conn)
}

// announce fans a queue change out to the event stream and the portal.
// Both are best-effort; the ride is already persisted.
func (s *Server) announce(evt models.RideEvent) {
	if s.kafka != nil {
		if err := s.kafka.PublishRideEvent(evt); err != nil {
			s.logger.Warn("ride event publish failed", "ride", evt.Ride.ID, "error", err)
		}
	}
	s.portal.Broadcast(evt)
}
