package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RideRequest is what a student submits when hailing the shuttle.
type RideRequest struct {
	RiderID       string `json:"rider_id"`
	NumPassengers int    `json:"num_passengers"`
	Pickup        Coord  `json:"pickup"`
	Dropoff       Coord  `json:"dropoff"`
}

// Schedule is the computed time data for one ride: when the shuttle
// reaches the pickup, how long the leg takes, and when it drops off.
type Schedule struct {
	PickupTime  time.Time `json:"pickup_time"`
	TravelTime  int       `json:"travel_time"` // seconds
	DropoffTime time.Time `json:"dropoff_time"`
}

type Ride struct {
	ID            string    `json:"id"`
	RiderID       string    `json:"rider_id"`
	NumPassengers int       `json:"num_passengers"`
	Pickup        Coord     `json:"pickup"`
	Dropoff       Coord     `json:"dropoff"`
	PickupTime    time.Time `json:"pickup_time"`
	TravelTime    int       `json:"travel_time"` // seconds
	DropoffTime   time.Time `json:"dropoff_time"`
	OnCampus      bool      `json:"on_campus"`
	CreatedAt     time.Time `json:"created_at"`
}

// RideEvent is published on the ride lifecycle stream.
type RideEvent struct {
	Type string    `json:"type"` // created, deleted
	Ride Ride      `json:"ride"`
	At   time.Time `json:"at"`
}

const (
	RideCreated = "created"
	RideDeleted = "deleted"
)

// NewID returns a random 16-character hex identifier, used for rides
// and portal sessions.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
