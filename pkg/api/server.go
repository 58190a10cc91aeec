// Package api exposes the fleet control surface over HTTP. Handlers are
// thin: they translate between JSON and the manager/store packages, mapping
// error kinds onto status codes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/manager"
	"github.com/agvsim/fleet-simulator/pkg/models"
	"github.com/agvsim/fleet-simulator/pkg/simerr"
)

// HealthChecker reports store reachability. *store.Client is the production
// implementation.
type HealthChecker interface {
	Health(ctx context.Context) models.HealthReport
}

// StatsProvider serves cached real-time statistics. *store.StatsCache is the
// production implementation.
type StatsProvider interface {
	RealTimeStats(ctx context.Context) *models.RealTimeStats
	Clear()
}

// Server wires the HTTP routes to the fleet manager and the store.
type Server struct {
	mgr    *manager.Manager
	stats  StatsProvider
	health HealthChecker
	log    logger.Logger
}

// NewServer builds the API server.
func NewServer(mgr *manager.Manager, stats StatsProvider, health HealthChecker) *Server {
	return &Server{
		mgr:    mgr,
		stats:  stats,
		health: health,
		log:    logger.WithPrefix("api"),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/robots/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/robots/{id}/stop", s.handleStop)
	mux.HandleFunc("POST /api/robots/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /api/robots/start-all", s.handleStartAll)
	mux.HandleFunc("POST /api/robots/stop-all", s.handleStopAll)
	mux.HandleFunc("POST /api/robots/reset-all", s.handleResetAll)

	mux.HandleFunc("GET /api/robots/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/robots/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /api/robots/status", s.handleAllStatus)

	mux.HandleFunc("GET /api/stats/operational", s.handleOperationalStats)
	mux.HandleFunc("GET /api/stats/realtime", s.handleRealTimeStats)
	mux.HandleFunc("POST /api/stats/clear-cache", s.handleClearCache)

	mux.HandleFunc("GET /api/health", s.handleHealth)

	return withCORS(s.withLogging(mux))
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Infof("listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	result, err := s.mgr.Start(r.PathValue("id"))
	s.respond(w, result, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	result, err := s.mgr.Stop(r.PathValue("id"))
	s.respond(w, result, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	result, err := s.mgr.Reset(r.PathValue("id"))
	s.respond(w, result, err)
}

func (s *Server) handleStartAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.StartAll())
}

func (s *Server) handleStopAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.StopAll())
}

func (s *Server) handleResetAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.ResetAll())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.mgr.Status(id)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	progress, _ := s.mgr.Progress(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"robot":    snap,
		"progress": progress,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := s.mgr.Progress(r.PathValue("id"))
	s.respond(w, snap, err)
}

func (s *Server) handleAllStatus(w http.ResponseWriter, _ *http.Request) {
	robots := s.mgr.AllStatus()
	summary := make(map[models.RobotStatus]int, 5)
	for _, snap := range robots {
		summary[snap.Status]++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"robots":  robots,
		"summary": summary,
		"total":   len(robots),
	})
}

func (s *Server) handleOperationalStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.OperationalStats())
}

func (s *Server) handleRealTimeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.RealTimeStats(r.Context()))
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.stats.Clear()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "statistics cache cleared",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Health(r.Context())
	status := http.StatusOK
	if report.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// respond writes payload or maps a simulator error onto its status code.
func (s *Server) respond(w http.ResponseWriter, payload interface{}, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, payload)
		return
	}

	status := http.StatusInternalServerError
	if kind, ok := simerr.KindOf(err); ok {
		switch kind {
		case simerr.KindNotFound:
			status = http.StatusNotFound
		case simerr.KindConflict:
			status = http.StatusConflict
		case simerr.KindStoreUnavailable:
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
