package planner

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/store"
)

// Server exposes the last computed plan over HTTP for display binding,
// plus the two write paths the planner owns: check-in and position.
type Server struct {
	planner *Planner
	store   *store.Store
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(p *Planner, st *store.Store, addr string) *Server {
	return &Server{
		planner: p,
		store:   st,
		addr:    addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/plan/today", s.handlePlanToday)
	mux.HandleFunc("/building/current", s.handleCurrentBuilding)
	mux.HandleFunc("/upcoming", s.handleUpcoming)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/checkin", s.handleCheckIn)
	mux.HandleFunc("/position", s.handlePosition)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting Rounds daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.planner.Plan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handlePlanToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.planner.Plan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, p.Week.Today())
}

func (s *Server) handleCurrentBuilding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.planner.Plan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if p.CurrentBuilding == nil {
		http.Error(w, "no current building", http.StatusNotFound)
		return
	}
	writeJSON(w, p.CurrentBuilding)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.planner.Plan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	upcoming := p.Upcoming
	if upcoming == nil {
		upcoming = []models.Task{}
	}
	writeJSON(w, map[string]interface{}{
		"upcoming":         upcoming,
		"deferred_outdoor": p.DeferredOutdoor,
		"defer_outdoor":    p.DeferOutdoor,
		"suggestions":      p.Suggestions,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.planner.Refresh()
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"refreshing"}`))
}

type checkInRequest struct {
	BuildingID string `json:"building_id"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req checkInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.BuildingID == "" {
			http.Error(w, "building_id required", http.StatusBadRequest)
			return
		}
		building, err := s.lookupBuilding(req.BuildingID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		ci := s.planner.CheckIn(*building, time.Now())
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, ci)
	case http.MethodDelete:
		s.planner.CheckOut()
		w.Write([]byte(`{"status":"checked_out"}`))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type positionRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.planner.SetPosition(models.Coordinate{Lat: req.Lat, Lon: req.Lon})
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"position_updated"}`))
}

// lookupBuilding resolves a check-in target from the worker's
// assignments so a worker cannot check in to a building that does not
// exist.
func (s *Server) lookupBuilding(id string) (*models.BuildingSummary, error) {
	buildings, err := s.store.GetAssignedBuildings(s.planner.workerID)
	if err != nil {
		return nil, err
	}
	for i := range buildings {
		if buildings[i].ID == id {
			return &buildings[i], nil
		}
	}
	return nil, ErrUnknownBuilding
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
