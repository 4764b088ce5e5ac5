// Package api implements the operations HTTP surface: message intake,
// registry and state introspection, scenes, and run counters.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reevehome/reeve/internal/buildinfo"
	"github.com/reevehome/reeve/internal/capability"
	"github.com/reevehome/reeve/internal/entity"
	"github.com/reevehome/reeve/internal/events"
	"github.com/reevehome/reeve/internal/memory"
	"github.com/reevehome/reeve/internal/runtime"
	"github.com/reevehome/reeve/internal/smartthings"
	"github.com/reevehome/reeve/internal/statecache"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// SceneGateway is the slice of the device cloud the scene endpoints use.
type SceneGateway interface {
	ListScenes(ctx context.Context) ([]smartthings.Scene, error)
	ExecuteScene(ctx context.Context, sceneID string) error
}

// Config wires the server's collaborators. Actions, Registry, Cache and
// Capabilities are required. Scenes, Automation and Memory may be nil;
// their endpoints answer 503 until configured.
type Config struct {
	Address string
	Port    int

	// Actions are consulted in order for every incoming message; the
	// first one whose CanHandle fires gets the message.
	Actions []runtime.Action

	Registry     *entity.Registry
	Cache        *statecache.Store
	Capabilities *capability.Registry

	Scenes     SceneGateway
	Automation runtime.ContextProvider

	// Context is the combined provider block an outer runtime would
	// inject ahead of its own prompt; usually a runtime.Composite.
	Context runtime.ContextProvider

	Memory   *memory.Store
	Counters *events.Counters

	Logger *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	logger *slog.Logger
	server *http.Server
}

// NewServer creates an API server. It does not listen until Start.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler builds the route table. Exposed separately from Start so
// tests can drive the mux without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/message", s.handleMessage)

	mux.HandleFunc("GET /v1/entities", s.handleEntities)
	mux.HandleFunc("GET /v1/state", s.handleState)
	mux.HandleFunc("GET /v1/automation", s.handleAutomation)
	mux.HandleFunc("GET /v1/context", s.handleContext)
	mux.HandleFunc("GET /v1/capabilities", s.handleCapabilities)

	mux.HandleFunc("GET /v1/scenes", s.handleScenes)
	mux.HandleFunc("POST /v1/scenes/{id}/execute", s.handleSceneExecute)

	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	// Exact-path match only; a bare "GET /" would swallow every
	// unregistered path and shadow the mux's 405 answers.
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener
// closes.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// A message pass may spend the pipeline's full per-call timeout
		// in each of its external calls before answering.
		WriteTimeout: 150 * time.Second,
	}

	addr := s.cfg.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.cfg.Port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"error": message}, s.logger)
}

// MessageRequest is the message intake payload.
type MessageRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// MessageResponse is an action's envelope plus the request id.
type MessageResponse struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Action    string `json:"action"`
	Source    string `json:"source"`
}

// handleMessage routes a message through the action list. The first
// action whose keyword check fires owns the message; if it declines (the
// intent gate ruled the message out) or nothing fires, the answer is
// 204 with no body.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	requestID := uuid.New().String()

	for _, action := range s.cfg.Actions {
		if !action.CanHandle(req.Text) {
			continue
		}
		resp, err := action.Handle(r.Context(), req.Text, req.UserID)
		if err != nil {
			s.logger.Error("action failed",
				"action", action.Name(),
				"request_id", requestID,
				"error", err,
			)
			s.errorResponse(w, http.StatusInternalServerError, "action failed")
			return
		}
		if resp == nil {
			break
		}
		s.logger.Info("message handled",
			"action", action.Name(),
			"request_id", requestID,
		)
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, MessageResponse{
			RequestID: requestID,
			Text:      resp.Text,
			Action:    resp.Action,
			Source:    resp.Source,
		}, s.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.cfg.Registry.List()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":    len(entities),
		"entities": entities,
	}, s.logger)
}

// handleState exposes the cached snapshot the intent gate sees.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	entries := s.cfg.Cache.Entries()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":   len(entries),
		"entries": entries,
		"text":    s.cfg.Cache.Snapshot(),
	}, s.logger)
}

func (s *Server) handleAutomation(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Automation == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "automation mirror not configured")
		return
	}
	text, err := s.cfg.Automation.GetContext(r.Context(), "")
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"text": text}, s.logger)
}

// handleContext renders the full context block an outer runtime would
// inject: cached state, device inventory, and the automation mirror
// when enabled.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Context == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "context providers not configured")
		return
	}
	text, err := s.cfg.Context.GetContext(r.Context(), "")
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"text": text}, s.logger)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	descriptors := s.cfg.Capabilities.List()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":        len(descriptors),
		"capabilities": descriptors,
	}, s.logger)
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Scenes == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "scenes not configured")
		return
	}
	scenes, err := s.cfg.Scenes.ListScenes(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":  len(scenes),
		"scenes": scenes,
	}, s.logger)
}

func (s *Server) handleSceneExecute(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Scenes == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "scenes not configured")
		return
	}
	sceneID := r.PathValue("id")
	if err := s.cfg.Scenes.ExecuteScene(r.Context(), sceneID); err != nil {
		s.logger.Error("scene execution failed", "scene_id", sceneID, "error", err)
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	s.logger.Info("scene executed", "scene_id", sceneID)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"scene_id": sceneID,
		"status":   "executed",
	}, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"build":         buildinfo.Info(),
		"counters":      s.cfg.Counters.Snapshot(),
		"entities":      s.cfg.Registry.Count(),
		"cached_states": s.cfg.Cache.Len(),
		"capabilities":  s.cfg.Capabilities.Count(),
	}
	if s.cfg.Memory != nil {
		stats["memory"] = s.cfg.Memory.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "reeve",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}
