// Package gateway exposes the agent over HTTP and WebSocket: chat
// dispatch, profile management, registry browsing and live event
// streaming.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gish1337/alm-agent/internal/chain"
	"github.com/gish1337/alm-agent/internal/engine"
	"github.com/gish1337/alm-agent/internal/events"
	"github.com/gish1337/alm-agent/internal/gateway/ws"
	"github.com/gish1337/alm-agent/internal/profile"
	"github.com/gish1337/alm-agent/internal/registry"
	"github.com/gish1337/alm-agent/internal/storage"
)

// Dispatcher routes one chat message. The engine satisfies it; tests
// supply a stub.
type Dispatcher interface {
	Process(ctx context.Context, message string, history []engine.Turn) string
}

// statusSource serves the cached chain snapshot.
type statusSource interface {
	Snapshot() (chain.StatusSnapshot, bool)
}

// Config wires a Server. Engine, Registry and Profile are required;
// Monitor and Tally are optional and their endpoints degrade without
// them.
type Config struct {
	Bus      *events.Bus
	Engine   Dispatcher
	Registry *registry.Registry
	Profile  *profile.Manager
	Monitor  statusSource
	Tally    *storage.SkillTally

	Host string
	Port int
}

// Server is the agent's gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	engine     Dispatcher
	registry   *registry.Registry
	profile    *profile.Manager
	monitor    statusSource
	tally      *storage.SkillTally
	started    time.Time
}

// NewServer creates a gateway server and mounts its routes.
func NewServer(cfg Config) *Server {
	s := &Server{
		hub:      ws.NewHub(cfg.Bus, cfg.Engine),
		bus:      cfg.Bus,
		engine:   cfg.Engine,
		registry: cfg.Registry,
		profile:  cfg.Profile,
		monitor:  cfg.Monitor,
		tally:    cfg.Tally,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/agent", s.handleAgent)
	r.Get("/api/agent/export", s.handleAgentExport)
	r.Post("/api/agent/capabilities", s.handleAddCapability)
	r.Patch("/api/agent/capabilities/{name}", s.handleToggleCapability)
	r.Get("/api/agents", s.handleAgents)
	r.Get("/api/agents/{id}", s.handleAgentByID)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/events", s.handleEvents)
	r.Get("/ws", s.hub.ServeWS)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: r,
	}

	return s
}

// Handler returns the mounted router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"agent":     s.profile.Summary().Status,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if s.monitor != nil {
		if snap, fresh := s.monitor.Snapshot(); fresh {
			resp["chain_healthy"] = snap.Healthy
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message string        `json:"message"`
	History []engine.Turn `json:"history,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply := s.engine.Process(r.Context(), req.Message, req.History)
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.profile.Summary())
}

func (s *Server) handleAgentExport(w http.ResponseWriter, r *http.Request) {
	manifest, ok := s.profile.ExportOpenClaw()
	if !ok {
		writeError(w, http.StatusConflict, "agent not initialized")
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

func (s *Server) handleAddCapability(w http.ResponseWriter, r *http.Request) {
	var cap registry.AgentCapability
	if err := json.NewDecoder(r.Body).Decode(&cap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if cap.Name == "" {
		writeError(w, http.StatusBadRequest, "capability name is required")
		return
	}

	if !s.profile.AddCapability(cap) {
		writeError(w, http.StatusConflict, "agent not initialized")
		return
	}
	writeJSON(w, http.StatusOK, s.profile.Summary())
}

func (s *Server) handleToggleCapability(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !s.profile.ToggleCapability(name, req.Enabled) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("capability %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": req.Enabled})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("agent %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile":      p,
		"recent_tasks": s.registry.RecentTasks(id),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"agents": s.registry.Count(),
	}
	if s.tally != nil {
		resp["skills"] = s.tally.Skills()
		resp["routes"] = s.tally.Routes()
	}
	if s.monitor != nil {
		if snap, fresh := s.monitor.Snapshot(); fresh {
			resp["chain"] = snap
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}

	history := s.bus.History(limit)

	type eventJSON struct {
		ID        string             `json:"id"`
		AgentID   string             `json:"agent_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			AgentID:   e.AgentID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	writeJSON(w, http.StatusOK, result)
}
