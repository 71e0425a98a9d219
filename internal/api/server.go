// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/talgya/terrace/internal/config"
	"github.com/talgya/terrace/internal/engine"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Mu guards the simulation. The step loop holds it while stepping;
	// handlers hold it while reading.
	Mu *sync.Mutex
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/api/v1/market", s.handleMarket)
	mux.HandleFunc("/api/v1/distributions", s.handleDistributions)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/policy", s.adminOnly(s.handlePolicy))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no TERRACE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	writeJSON(w, map[string]any{
		"step":           s.Sim.CurrentStep(),
		"year":           s.Sim.Year(s.Sim.CurrentStep()),
		"households":     len(s.Sim.Reg.Households),
		"properties":     len(s.Sim.Reg.Properties),
		"realtors":       len(s.Sim.Reg.Realtors),
		"extinct":        s.Sim.Extinct(),
		"interest_rate":  s.Sim.Cfg.InterestRate,
		"max_ltv":        s.Sim.Cfg.MaxLTV,
		"affordability":  s.Sim.Cfg.Affordability,
		"stamp_duty":     s.Sim.Cfg.StampDuty,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	writeJSON(w, s.Sim.Last)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	writeJSON(w, s.Sim.Snapshot())
}

func (s *Server) handleDistributions(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	writeJSON(w, s.Sim.Distributions())
}

// handlePolicy applies a policy override immediately. The body is the same
// shape as a schedule entry; the year field is ignored.
func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var o config.Override
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	s.Sim.Cfg.Apply(o)
	cfg := *s.Sim.Cfg
	s.Mu.Unlock()

	slog.Info("policy override applied via API",
		"interest_rate", cfg.InterestRate,
		"max_ltv", cfg.MaxLTV,
		"affordability", cfg.Affordability,
		"stamp_duty", cfg.StampDuty,
	)

	writeJSON(w, map[string]any{
		"interest_rate": cfg.InterestRate,
		"max_ltv":       cfg.MaxLTV,
		"affordability": cfg.Affordability,
		"stamp_duty":    cfg.StampDuty,
		"entry_rate":    cfg.EntryRate,
		"exit_rate":     cfg.ExitRate,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
