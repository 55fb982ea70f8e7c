package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Server exposes a registry over the tool-call wire contract.
type Server struct {
	service  string
	registry *Registry
}

// NewServer wraps a registry for serving. The service name appears in health
// responses so operators can tell collaborators apart.
func NewServer(service string, registry *Registry) *Server {
	return &Server{service: service, registry: registry}
}

// Handler builds the collaborator's HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/tools", s.handleTools)
	r.Post("/call_tool", s.handleCallTool)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.service,
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]Tool{"tools": s.registry.Tools()})
}

// handleCallTool answers 200 with a failure envelope for every tool-level
// problem; only an unreadable request body gets an HTTP error status.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var req ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ToolResponse{Success: false, Error: "invalid request body"})
		return
	}

	resp := s.registry.Call(r.Context(), req.Name, req.Arguments)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
