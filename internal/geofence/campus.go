package geofence

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

// The campus boundary ships with the binary. The ring is ordered
// (longitude, latitude), GeoJSON style, and is loaded exactly once.
//
//go:embed campus.json
var campusData []byte

var (
	campusOnce sync.Once
	campusPoly Polygon
	campusErr  error
)

// Campus returns the campus boundary polygon.
func Campus() (Polygon, error) {
	campusOnce.Do(func() {
		var ring [][2]float64
		if err := json.Unmarshal(campusData, &ring); err != nil {
			campusErr = fmt.Errorf("parse campus boundary: %w", err)
			return
		}
		campusPoly, campusErr = NewPolygon(ring)
	})
	return campusPoly, campusErr
}
