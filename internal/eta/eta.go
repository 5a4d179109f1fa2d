package eta

import (
	"context"
	"errors"
	"fmt"

	"github.com/steerclearwm/steerclear/internal/models"
)

// Source is the interface the scheduler uses to get travel times.
// Legs asks the oracle for the full m×n duration matrix between origins
// and destinations, in whole seconds. Implementations must either
// return a complete, validated matrix or an error, never a partial one.
type Source interface {
	Legs(ctx context.Context, origins, destinations []models.Coord) ([][]int, error)
}

var (
	// ErrUnavailable covers transport failures and non-OK API replies.
	ErrUnavailable = errors.New("travel time service unavailable")
	// ErrBadMatrix covers replies that parse but violate the matrix
	// shape or carry a non-OK element. Both collapse to "no usable ETA"
	// for the caller; a partially trustworthy matrix is as dangerous as
	// no matrix at all.
	ErrBadMatrix = errors.New("travel time response malformed")
)

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lon)
}

func fmtCoords(cs []models.Coord) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = fmtCoord(c)
	}
	return out
}
