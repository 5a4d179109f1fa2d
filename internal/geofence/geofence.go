package geofence

import (
	"errors"

	"github.com/steerclearwm/steerclear/internal/models"
)

// Polygon is a simple (non-self-intersecting) closed ring of (x, y)
// vertices, x being longitude and y latitude. The first vertex is not
// repeated at the end; the ring wraps implicitly. Immutable once built.
type Polygon struct {
	verts [][2]float64
}

var ErrDegenerate = errors.New("polygon needs at least 3 vertices")

func NewPolygon(verts [][2]float64) (Polygon, error) {
	if len(verts) < 3 {
		return Polygon{}, ErrDegenerate
	}
	ring := make([][2]float64, len(verts))
	copy(ring, verts)
	return Polygon{verts: ring}, nil
}

// Contains reports whether (x, y) lies inside the polygon or on one of
// the boundary cases handled explicitly: an exact vertex hit, or a point
// on a horizontal edge strictly between its endpoints. Everything else
// is decided by ray casting: the edge crossing rule is exclusive at the
// lower y endpoint and inclusive at the upper, so a ray through a vertex
// toggles exactly once.
func (p Polygon) Contains(x, y float64) bool {
	for _, v := range p.verts {
		if v[0] == x && v[1] == y {
			return true
		}
	}

	n := len(p.verts)
	for i := 0; i < n; i++ {
		p1 := p.verts[i]
		p2 := p.verts[(i+1)%n]
		if p1[1] == p2[1] && p1[1] == y &&
			x > min(p1[0], p2[0]) && x < max(p1[0], p2[0]) {
			return true
		}
	}

	inside := false
	p1x, p1y := p.verts[0][0], p.verts[0][1]
	for i := 1; i <= n; i++ {
		p2x, p2y := p.verts[i%n][0], p.verts[i%n][1]
		if y > min(p1y, p2y) && y <= max(p1y, p2y) && x <= max(p1x, p2x) {
			var xints float64
			if p1y != p2y {
				xints = (y-p1y)*(p2x-p1x)/(p2y-p1y) + p1x
			}
			if p1x == p2x || x <= xints {
				inside = !inside
			}
		}
		p1x, p1y = p2x, p2y
	}
	return inside
}

// ContainsCoord is Contains with a lat/lon coordinate instead of the
// raw (x, y) vertex order.
func (p Polygon) ContainsCoord(c models.Coord) bool {
	return p.Contains(c.Lon, c.Lat)
}
