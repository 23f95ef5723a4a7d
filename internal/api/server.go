package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"tumorboard/internal/hub"
	"tumorboard/pkg/interfaces"
	"tumorboard/pkg/types"
)

// Stats exposes fan-out registry statistics without coupling the API layer
// to the fanout implementation.
type Stats interface {
	GetStats() map[string]int
}

// Server is the HTTP surface: case registry CRUD, room snapshot reads, and
// health. No business logic lives here - only HTTP handling and JSON
// serialization.
type Server struct {
	collab *hub.Hub
	cases  interfaces.CaseStore
	stats  Stats
	router *mux.Router
}

// NewServer creates the API server and wires its routes.
func NewServer(collab *hub.Hub, cases interfaces.CaseStore, stats Stats) *Server {
	s := &Server{
		collab: collab,
		cases:  cases,
		stats:  stats,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes follows REST conventions; CORS and panic recovery are applied
// uniformly through gorilla/handlers middleware.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/cases", s.listCases).Methods(http.MethodGet)
	s.router.HandleFunc("/api/cases", s.createCase).Methods(http.MethodPost)
	s.router.HandleFunc("/api/cases/{caseID}", s.getCase).Methods(http.MethodGet)
	s.router.HandleFunc("/api/rooms/{roomID}/state", s.getRoomState).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)

	s.router.Use(
		handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)),
		handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		),
	)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Request/Response types for JSON serialization
type CreateCaseRequest struct {
	ID             string `json:"id,omitempty"`
	Title          string `json:"title"`
	Modality       string `json:"modality"`
	Description    string `json:"description,omitempty"`
	AxialSlices    int    `json:"axial_slices,omitempty"`
	SagittalSlices int    `json:"sagittal_slices,omitempty"`
	CoronalSlices  int    `json:"coronal_slices,omitempty"`
}

type CaseResponse struct {
	Case *types.Case `json:"case"`
}

type ListCasesResponse struct {
	Cases []*types.Case `json:"cases"`
}

type RoomStateResponse struct {
	Room *types.RoomSnapshot `json:"room"`
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Subscribers map[string]int `json:"subscribers,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.cases.ListCases(r.Context())
	if err != nil {
		log.Printf("Failed to list cases: %v", err)
		s.sendError(w, "Failed to list cases", http.StatusInternalServerError)
		return
	}
	if cases == nil {
		cases = []*types.Case{}
	}
	s.sendJSON(w, http.StatusOK, ListCasesResponse{Cases: cases})
}

func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	c := &types.Case{
		ID:             req.ID,
		Title:          req.Title,
		Modality:       req.Modality,
		Description:    req.Description,
		AxialSlices:    req.AxialSlices,
		SagittalSlices: req.SagittalSlices,
		CoronalSlices:  req.CoronalSlices,
	}
	if err := s.cases.CreateCase(r.Context(), c); err != nil {
		switch err {
		case types.ErrInvalidCaseTitle, types.ErrInvalidModality:
			s.sendError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Failed to create case: %v", err)
			s.sendError(w, "Failed to create case", http.StatusInternalServerError)
		}
		return
	}
	s.sendJSON(w, http.StatusCreated, CaseResponse{Case: c})
}

func (s *Server) getCase(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["caseID"]

	c, err := s.cases.GetCase(r.Context(), caseID)
	if err != nil {
		if err == interfaces.ErrCaseNotFound {
			s.sendError(w, "Case not found", http.StatusNotFound)
		} else {
			log.Printf("Failed to get case %s: %v", caseID, err)
			s.sendError(w, "Failed to get case", http.StatusInternalServerError)
		}
		return
	}
	s.sendJSON(w, http.StatusOK, CaseResponse{Case: c})
}

// getRoomState serves the snapshot query surface, usable before a live
// connection is established (e.g. on initial page load).
func (s *Server) getRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	snap, ok := s.collab.RoomState(roomID)
	if !ok {
		s.sendError(w, "Room not found", http.StatusNotFound)
		return
	}
	s.sendJSON(w, http.StatusOK, RoomStateResponse{Room: snap})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "healthy",
	}
	if err := s.cases.HealthCheck(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if s.stats != nil {
		resp.Subscribers = s.stats.GetStats()
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.sendJSON(w, status, resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}
