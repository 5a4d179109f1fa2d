package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/steerclearwm/steerclear/internal/eta"
	"github.com/steerclearwm/steerclear/internal/models"
	"github.com/steerclearwm/steerclear/internal/observability"
	"github.com/steerclearwm/steerclear/internal/storage"
)

var (
	pickup  = models.Coord{Lat: 37.273485, Lon: -76.719628}
	dropoff = models.Coord{Lat: 37.280893, Lon: -76.719691}
	tailEnd = models.Coord{Lat: 37.272042, Lon: -76.714027}
)

// matrixSource replays canned matrices and records the coordinates of
// each call.
type matrixSource struct {
	mu       sync.Mutex
	matrices [][][]int
	err      error
	delay    time.Duration
	calls    [][2][]models.Coord
}

func (f *matrixSource) Legs(ctx context.Context, origins, destinations []models.Coord) ([][]int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2][]models.Coord{origins, destinations})
	if f.err != nil {
		return nil, f.err
	}
	m := f.matrices[0]
	if len(f.matrices) > 1 {
		f.matrices = f.matrices[1:]
	}
	return m, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEmptyQueueUsesArrivalOffset(t *testing.T) {
	now := time.Date(2015, 6, 1, 22, 0, 0, 0, time.UTC)
	src := &matrixSource{matrices: [][][]int{{{171}}}}
	svc := &Service{Store: storage.NewMemoryStore(), Source: src, Now: fixedClock(now), PickupOffset: DefaultPickupOffset}

	req := models.RideRequest{RiderID: "u1", NumPassengers: 2, Pickup: pickup, Dropoff: dropoff}
	sched, err := svc.Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if want := now.Add(600 * time.Second); !sched.PickupTime.Equal(want) {
		t.Errorf("pickup = %v, want %v", sched.PickupTime, want)
	}
	if sched.TravelTime != 171 {
		t.Errorf("travel = %d, want 171", sched.TravelTime)
	}
	if want := now.Add(771 * time.Second); !sched.DropoffTime.Equal(want) {
		t.Errorf("dropoff = %v, want %v", sched.DropoffTime, want)
	}

	// single 1×1 leg pickup→dropoff
	if len(src.calls) != 1 {
		t.Fatalf("oracle called %d times", len(src.calls))
	}
	if got := src.calls[0][0]; len(got) != 1 || got[0] != pickup {
		t.Errorf("origins = %v", got)
	}
	if got := src.calls[0][1]; len(got) != 1 || got[0] != dropoff {
		t.Errorf("destinations = %v", got)
	}
}

func TestEmptyQueueOffsetIndependentOfCoordinates(t *testing.T) {
	now := time.Date(2015, 6, 1, 22, 0, 0, 0, time.UTC)
	for _, travel := range []int{1, 171, 3600} {
		src := &matrixSource{matrices: [][][]int{{{travel}}}}
		svc := &Service{Store: storage.NewMemoryStore(), Source: src, Now: fixedClock(now), PickupOffset: DefaultPickupOffset}
		sched, err := svc.Plan(context.Background(), models.RideRequest{Pickup: pickup, Dropoff: dropoff})
		if err != nil {
			t.Fatal(err)
		}
		if want := now.Add(DefaultPickupOffset); !sched.PickupTime.Equal(want) {
			t.Errorf("travel=%d: pickup = %v, want %v", travel, sched.PickupTime, want)
		}
	}
}

func TestZeroPickupOffsetIsHonored(t *testing.T) {
	now := time.Date(2015, 6, 1, 22, 0, 0, 0, time.UTC)
	src := &matrixSource{matrices: [][][]int{{{171}}}}
	svc := &Service{Store: storage.NewMemoryStore(), Source: src, Now: fixedClock(now), PickupOffset: 0}

	sched, err := svc.Plan(context.Background(), models.RideRequest{Pickup: pickup, Dropoff: dropoff})
	if err != nil {
		t.Fatal(err)
	}
	if !sched.PickupTime.Equal(now) {
		t.Errorf("pickup = %v, want %v", sched.PickupTime, now)
	}
	if !sched.DropoffTime.Equal(now.Add(171 * time.Second)) {
		t.Errorf("dropoff = %v", sched.DropoffTime)
	}
}

func TestNonEmptyQueueChainsAfterTail(t *testing.T) {
	t0 := time.Date(2015, 6, 1, 22, 30, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	tail := &models.Ride{ID: "tail", Dropoff: tailEnd, DropoffTime: t0}
	if err := store.SaveRide(context.Background(), tail); err != nil {
		t.Fatal(err)
	}

	// aligned two-leg call: diagonal carries leg 0 (tail→pickup, 252s)
	// and leg 1 (pickup→dropoff, 171s)
	src := &matrixSource{matrices: [][][]int{{{252, 999}, {888, 171}}}}
	svc := &Service{Store: store, Source: src, Now: fixedClock(t0)}

	sched, err := svc.Plan(context.Background(), models.RideRequest{Pickup: pickup, Dropoff: dropoff})
	if err != nil {
		t.Fatal(err)
	}

	if want := t0.Add(252 * time.Second); !sched.PickupTime.Equal(want) {
		t.Errorf("pickup = %v, want %v", sched.PickupTime, want)
	}
	if sched.TravelTime != 171 {
		t.Errorf("travel = %d, want 171", sched.TravelTime)
	}
	if want := t0.Add(423 * time.Second); !sched.DropoffTime.Equal(want) {
		t.Errorf("dropoff = %v, want %v", sched.DropoffTime, want)
	}

	wantOrigins := []models.Coord{tailEnd, pickup}
	wantDests := []models.Coord{pickup, dropoff}
	gotOrigins, gotDests := src.calls[0][0], src.calls[0][1]
	for i := range wantOrigins {
		if gotOrigins[i] != wantOrigins[i] {
			t.Errorf("origins[%d] = %v, want %v", i, gotOrigins[i], wantOrigins[i])
		}
		if gotDests[i] != wantDests[i] {
			t.Errorf("destinations[%d] = %v, want %v", i, gotDests[i], wantDests[i])
		}
	}
}

func TestOracleFailureAbortsWithoutPersisting(t *testing.T) {
	for _, tailPresent := range []bool{false, true} {
		store := storage.NewMemoryStore()
		ctx := context.Background()
		queued := 0
		if tailPresent {
			if err := store.SaveRide(ctx, &models.Ride{ID: "tail", Dropoff: tailEnd, DropoffTime: time.Now()}); err != nil {
				t.Fatal(err)
			}
			queued = 1
		}

		src := &matrixSource{err: eta.ErrUnavailable}
		svc := &Service{Store: store, Source: src}

		_, err := svc.Enqueue(ctx, models.RideRequest{Pickup: pickup, Dropoff: dropoff})
		if !errors.Is(err, ErrNoSchedule) {
			t.Fatalf("tail=%v: want ErrNoSchedule, got %v", tailPresent, err)
		}
		rides, err := store.ListRides(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(rides) != queued {
			t.Fatalf("tail=%v: %d rides persisted after failed schedule", tailPresent, len(rides))
		}
	}
}

func TestMalformedOracleReplyAborts(t *testing.T) {
	src := &matrixSource{err: eta.ErrBadMatrix}
	svc := &Service{Store: storage.NewMemoryStore(), Source: src}
	_, err := svc.Plan(context.Background(), models.RideRequest{Pickup: pickup, Dropoff: dropoff})
	if !errors.Is(err, ErrNoSchedule) {
		t.Fatalf("want ErrNoSchedule, got %v", err)
	}
}

func TestChainContinuity(t *testing.T) {
	now := time.Date(2015, 6, 1, 22, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	src := &matrixSource{matrices: [][][]int{
		{{171}},
		{{252, 1}, {1, 300}},
		{{40, 1}, {1, 500}},
		{{610, 1}, {1, 40}},
		{{5, 1}, {1, 90}},
	}}
	svc := &Service{Store: store, Source: src, Now: fixedClock(now)}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Enqueue(ctx, models.RideRequest{Pickup: pickup, Dropoff: dropoff}); err != nil {
			t.Fatal(err)
		}
	}

	rides, err := store.ListRides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rides) != 5 {
		t.Fatalf("got %d rides", len(rides))
	}
	for k := 1; k < len(rides); k++ {
		if rides[k].PickupTime.Before(rides[k-1].DropoffTime) {
			t.Errorf("ride %d pickup %v before ride %d dropoff %v",
				k, rides[k].PickupTime, k-1, rides[k-1].DropoffTime)
		}
	}
}

func TestConcurrentEnqueueSerializes(t *testing.T) {
	now := time.Date(2015, 6, 1, 22, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	src := &matrixSource{
		matrices: [][][]int{
			{{171}},
			{{252, 1}, {1, 300}},
		},
		delay: 10 * time.Millisecond,
	}
	svc := &Service{Store: store, Source: src, Now: fixedClock(now)}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Enqueue(ctx, models.RideRequest{Pickup: pickup, Dropoff: dropoff}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	rides, err := store.ListRides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rides) != 2 {
		t.Fatalf("got %d rides", len(rides))
	}
	// exactly one of them saw the empty queue; the other chained off it
	if rides[1].PickupTime.Before(rides[0].DropoffTime) {
		t.Errorf("second ride pickup %v before first dropoff %v",
			rides[1].PickupTime, rides[0].DropoffTime)
	}

	// the second call's origins must start at the first ride's dropoff
	second := src.calls[1]
	if len(second[0]) != 2 || second[0][0] != rides[0].Dropoff {
		t.Errorf("second oracle call origins = %v, want chained off %v", second[0], rides[0].Dropoff)
	}
}

func TestTimelockBlocksEnqueue(t *testing.T) {
	src := &matrixSource{matrices: [][][]int{{{171}}}}
	store := storage.NewMemoryStore()
	svc := &Service{Store: store, Source: src, Timelock: NewTimelock(false)}

	_, err := svc.Enqueue(context.Background(), models.RideRequest{Pickup: pickup, Dropoff: dropoff})
	if !errors.Is(err, ErrServiceClosed) {
		t.Fatalf("want ErrServiceClosed, got %v", err)
	}
	if len(src.calls) != 0 {
		t.Fatal("oracle should not be queried while service is closed")
	}

	svc.Timelock.Set(true)
	if _, err := svc.Enqueue(context.Background(), models.RideRequest{Pickup: pickup, Dropoff: dropoff}); err != nil {
		t.Fatal(err)
	}
}

func TestSyncQueueLength(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.SaveRide(ctx, &models.Ride{ID: id, DropoffTime: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	svc := &Service{Store: store}
	if err := svc.SyncQueueLength(ctx); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(observability.QueueLength); got != 3 {
		t.Fatalf("queue gauge = %v, want 3", got)
	}

	if err := store.DeleteRide(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SyncQueueLength(ctx); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(observability.QueueLength); got != 2 {
		t.Fatalf("queue gauge = %v, want 2", got)
	}
}

func TestOnCampusTagging(t *testing.T) {
	onCampus := func(c models.Coord) bool { return c == pickup || c == dropoff }

	tests := []struct {
		name    string
		pickup  models.Coord
		dropoff models.Coord
		want    bool
	}{
		{"both inside", pickup, dropoff, true},
		{"pickup outside", tailEnd, dropoff, false},
		{"dropoff outside", pickup, tailEnd, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &matrixSource{matrices: [][][]int{{{171}}}}
			svc := &Service{Store: storage.NewMemoryStore(), Source: src, OnCampus: onCampus}
			ride, err := svc.Enqueue(context.Background(), models.RideRequest{Pickup: tt.pickup, Dropoff: tt.dropoff})
			if err != nil {
				t.Fatal(err)
			}
			if ride.OnCampus != tt.want {
				t.Errorf("OnCampus = %v, want %v", ride.OnCampus, tt.want)
			}
		})
	}
}
