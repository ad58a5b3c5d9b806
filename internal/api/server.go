package api

import (
	"log/slog"
	"net/http"

	"github.com/mirrorhua/watchdog/internal/config"
	"github.com/mirrorhua/watchdog/internal/monitor"
	"github.com/mirrorhua/watchdog/internal/notifier"
	"github.com/mirrorhua/watchdog/internal/storage"
)

// Server is the thin HTTP surface over the engine: monitor and channel
// CRUD, the push ingestion endpoint, and health.
type Server struct {
	cfg        *config.Config
	store      storage.Store
	scheduler  *monitor.Scheduler
	recorder   *monitor.Recorder
	dispatcher *notifier.Dispatcher
	logger     *slog.Logger
	handler    http.Handler
	version    string
}

func NewServer(cfg *config.Config, store storage.Store, scheduler *monitor.Scheduler, recorder *monitor.Recorder, dispatcher *notifier.Dispatcher, logger *slog.Logger, version string) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		scheduler:  scheduler,
		recorder:   recorder,
		dispatcher: dispatcher,
		logger:     logger,
		version:    version,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	rl := newRateLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)
	handler = rl.middleware()(handler)
	handler = logging(logger)(handler)
	handler = recovery(logger)(handler)

	s.handler = handler
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/push/{token}", s.handlePush)

	mux.HandleFunc("GET /api/monitors", s.handleListMonitors)
	mux.HandleFunc("POST /api/monitors", s.handleCreateMonitor)
	mux.HandleFunc("GET /api/monitors/{id}", s.handleGetMonitor)
	mux.HandleFunc("PUT /api/monitors/{id}", s.handleUpdateMonitor)
	mux.HandleFunc("DELETE /api/monitors/{id}", s.handleDeleteMonitor)
	mux.HandleFunc("POST /api/monitors/{id}/pause", s.handlePauseMonitor)
	mux.HandleFunc("POST /api/monitors/{id}/resume", s.handleResumeMonitor)
	mux.HandleFunc("GET /api/monitors/{id}/status", s.handleMonitorStatus)
	mux.HandleFunc("PUT /api/monitors/{id}/channels", s.handleSetMonitorChannels)

	mux.HandleFunc("GET /api/channels", s.handleListChannels)
	mux.HandleFunc("POST /api/channels", s.handleCreateChannel)
	mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	mux.HandleFunc("PUT /api/channels/{id}", s.handleUpdateChannel)
	mux.HandleFunc("DELETE /api/channels/{id}", s.handleDeleteChannel)
	mux.HandleFunc("POST /api/channels/test", s.handleTestChannel)

	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("PUT /api/groups/{id}", s.handleUpdateGroup)
	mux.HandleFunc("DELETE /api/groups/{id}", s.handleDeleteGroup)

	mux.HandleFunc("GET /api/status-pages", s.handleListStatusPages)
	mux.HandleFunc("POST /api/status-pages", s.handleCreateStatusPage)
	mux.HandleFunc("GET /api/status-pages/{slug}", s.handleGetStatusPage)
	mux.HandleFunc("DELETE /api/status-pages/{id}", s.handleDeleteStatusPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
