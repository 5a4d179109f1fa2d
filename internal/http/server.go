package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steerclearwm/steerclear/internal/dispatch"
	"github.com/steerclearwm/steerclear/internal/ingest"
	"github.com/steerclearwm/steerclear/internal/scheduler"
	"github.com/steerclearwm/steerclear/internal/storage"
)

type Server struct {
	logger    *slog.Logger
	store     storage.RideStore
	scheduler *scheduler.Service
	timelock  *scheduler.Timelock
	kafka     *ingest.KafkaProducer // optional
	portal    *dispatch.PortalRegistry
	mux       *mux.Router
}

type Deps struct {
	Logger    *slog.Logger
	Store     storage.RideStore
	Scheduler *scheduler.Service
	Timelock  *scheduler.Timelock
	Kafka     *ingest.KafkaProducer
	Portal    *dispatch.PortalRegistry
}

func NewServer(deps Deps) *Server {
	s := &Server{
		logger:    deps.Logger,
		store:     deps.Store,
		scheduler: deps.Scheduler,
		timelock:  deps.Timelock,
		kafka:     deps.Kafka,
		portal:    deps.Portal,
		mux:       mux.NewRouter(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.portal == nil {
		s.portal = dispatch.NewPortalRegistry(s.logger)
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides", s.handleCreateRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides", s.handleListRides).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}", s.handleGetRide).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}", s.handleDeleteRide).Methods("DELETE")
	s.mux.HandleFunc("/api/v1/timelock", s.handleTimelock).Methods("PUT")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/portal", s.handlePortalWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
