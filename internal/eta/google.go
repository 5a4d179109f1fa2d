package eta

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/steerclearwm/steerclear/internal/models"
	"github.com/steerclearwm/steerclear/internal/observability"
)

// GoogleSource queries the Google Distance Matrix API. It is stateless;
// one Legs call is one API request, no retries. The caller decides
// whether a failed scheduling attempt is worth repeating.
type GoogleSource struct {
	client *maps.Client
}

// NewGoogleSource builds a source using the given API key. Extra client
// options are mainly for tests (maps.WithBaseURL against a mock server).
func NewGoogleSource(apiKey string, opts ...maps.ClientOption) (*GoogleSource, error) {
	all := append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(all...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &GoogleSource{client: client}, nil
}

func (g *GoogleSource) Legs(ctx context.Context, origins, destinations []models.Coord) ([][]int, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, fmt.Errorf("%w: empty origins or destinations", ErrBadMatrix)
	}

	req := &maps.DistanceMatrixRequest{
		Origins:      fmtCoords(origins),
		Destinations: fmtCoords(destinations),
		Mode:         maps.TravelModeDriving,
	}

	start := time.Now()
	resp, err := g.client.DistanceMatrix(ctx, req)
	observability.OracleLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.OracleRequests.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	matrix, err := validate(resp, origins, destinations)
	if err != nil {
		observability.OracleRequests.WithLabelValues("malformed").Inc()
		return nil, err
	}
	observability.OracleRequests.WithLabelValues("ok").Inc()
	return matrix, nil
}

// validate turns the raw reply into a complete seconds matrix, or fails.
// The row count must match the origins, every row must span all
// destinations, and every element must be OK with a usable duration.
// After decoding, a zero duration is indistinguishable from an omitted
// duration.value, so zero is only accepted where the origin and
// destination coordinates are equal: the API legitimately answers 0 for
// a same-point pair (the chain query always contains pickup→pickup in
// one off-diagonal slot), while a zero-second leg between distinct
// stops means the duration was missing.
func validate(resp *maps.DistanceMatrixResponse, origins, destinations []models.Coord) ([][]int, error) {
	m, n := len(origins), len(destinations)
	if len(resp.Rows) != m {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrBadMatrix, len(resp.Rows), m)
	}
	matrix := make([][]int, m)
	for i, row := range resp.Rows {
		if len(row.Elements) != n {
			return nil, fmt.Errorf("%w: row %d has %d elements, want %d", ErrBadMatrix, i, len(row.Elements), n)
		}
		matrix[i] = make([]int, n)
		for j, el := range row.Elements {
			if el.Status != "OK" {
				return nil, fmt.Errorf("%w: element [%d][%d] status %q", ErrBadMatrix, i, j, el.Status)
			}
			secs := int(el.Duration / time.Second)
			if secs <= 0 && origins[i] != destinations[j] {
				return nil, fmt.Errorf("%w: element [%d][%d] has no duration", ErrBadMatrix, i, j)
			}
			matrix[i][j] = secs
		}
	}
	return matrix, nil
}
