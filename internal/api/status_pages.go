package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// pageMonitorView is one monitor as shown on a public status page: current
// state plus 24h uptime, never the full config.
type pageMonitorView struct {
	Name        string          `json:"name"`
	Status      *storage.Status `json:"status"`
	LastCheckAt *time.Time      `json:"last_check_at,omitempty"`
	LastPing    *int64          `json:"last_ping,omitempty"`
	Uptime24h   float64         `json:"uptime_24h"`
}

func (s *Server) handleListStatusPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.store.ListStatusPages(r.Context())
	if err != nil {
		s.logger.Error("list status pages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreateStatusPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		storage.StatusPage
		Monitors []storage.StatusPageMonitor `json:"monitors"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Slug == "" || body.Title == "" {
		writeError(w, http.StatusBadRequest, "slug and title are required")
		return
	}
	if err := s.store.CreateStatusPage(r.Context(), &body.StatusPage); err != nil {
		s.logger.Error("create status page", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(body.Monitors) > 0 {
		if err := s.store.SetStatusPageMonitors(r.Context(), body.StatusPage.ID, body.Monitors); err != nil {
			s.logger.Error("set status page monitors", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	writeJSON(w, http.StatusCreated, &body.StatusPage)
}

func (s *Server) handleGetStatusPage(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	page, err := s.store.GetStatusPageBySlug(r.Context(), slug)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "status page not found")
		return
	}
	if err != nil {
		s.logger.Error("load status page", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	members, err := s.store.ListStatusPageMonitors(r.Context(), page.ID)
	if err != nil {
		s.logger.Error("load status page monitors", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	views := make([]pageMonitorView, 0, len(members))
	for _, member := range members {
		m, err := s.store.GetMonitor(r.Context(), member.MonitorID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			s.logger.Error("load page monitor", "monitor_id", member.MonitorID, "error", err)
			continue
		}
		uptime, err := s.store.UptimePercent(r.Context(), m.ID, now.Add(-24*time.Hour), now)
		if err != nil {
			s.logger.Error("uptime", "monitor_id", m.ID, "error", err)
		}
		name := member.DisplayName
		if name == "" {
			name = m.Name
		}
		views = append(views, pageMonitorView{
			Name:        name,
			Status:      m.LastStatus,
			LastCheckAt: m.LastCheckAt,
			LastPing:    m.LastPing,
			Uptime24h:   uptime,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"page":     page,
		"monitors": views,
	})
}

func (s *Server) handleDeleteStatusPage(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStatusPage(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error("delete status page", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
