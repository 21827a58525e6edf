// Package server exposes the HTTP surface: the sync triggers, the
// snapshot reads the map clients poll, and the line/shape reference
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"busao-tracker/internal/ingest"
	"busao-tracker/internal/metrics"
	"busao-tracker/internal/store"
	"busao-tracker/internal/vehicle"
)

type Server struct {
	store   store.Store
	syncer  *ingest.Syncer
	metrics *metrics.Collector
}

func New(st store.Store, syncer *ingest.Syncer, m *metrics.Collector) *Server {
	return &Server{store: st, syncer: syncer, metrics: m}
}

func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/api/buses", s.handleSnapshot(vehicle.ClassBus))
	r.Get("/api/buses/sync", s.handleSync(vehicle.ClassBus))
	r.Get("/api/brt", s.handleSnapshot(vehicle.ClassBRT))
	r.Get("/api/brt/sync", s.handleSync(vehicle.ClassBRT))
	r.Get("/api/lines", s.handleLines)
	r.Get("/api/route-shapes", s.handleRouteShapes)

	return r
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func linhasParam(r *http.Request) []string {
	raw := r.URL.Query().Get("linhas")
	if raw == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(raw, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// handleSnapshot serves GET /api/{buses,brt}?linhas=384,399. This is
// the endpoint map clients poll; an empty store yields an empty array.
func (s *Server) handleSnapshot(class vehicle.Class) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.store.Snapshot(r.Context(), class, linhasParam(r))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Erro ao buscar dados dos veículos",
				Message: err.Error(),
			})
			return
		}
		if recs == nil {
			recs = []vehicle.Record{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

// handleSync serves GET /api/{buses,brt}/sync, meant for an external
// scheduler (or the internal loop) on a ~15s cadence.
func (s *Server) handleSync(class vehicle.Class) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.syncer.Sync(r.Context(), class)
		if err != nil {
			log.Printf("sync %s: %v", class, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Erro ao sincronizar dados",
				Message: err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": count})
	}
}

// handleLines serves GET /api/lines?q=384&modo=bus&limit=15 for
// autocomplete. Empty queries return an empty list.
func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	modo := vehicle.Class(r.URL.Query().Get("modo"))
	if modo != "" && !modo.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "modo inválido"})
		return
	}
	limit := 15
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 30 {
		limit = 30
	}
	lines, err := s.store.SearchLines(r.Context(), q, modo, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Erro ao buscar linhas", Message: err.Error()})
		return
	}
	if lines == nil {
		lines = []vehicle.Line{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
}

// handleRouteShapes serves GET /api/route-shapes?linhas=399,669 with
// {"399": [[{lat,lng},...], ...]}: one or more polylines per line
// (typically ida and volta).
func (s *Server) handleRouteShapes(w http.ResponseWriter, r *http.Request) {
	linhas := linhasParam(r)
	if len(linhas) == 0 {
		writeJSON(w, http.StatusOK, map[string][]vehicle.Polyline{})
		return
	}
	shapes, err := s.store.RouteShapes(r.Context(), linhas)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Erro ao carregar traçados", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, shapes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}
