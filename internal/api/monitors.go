package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mirrorhua/watchdog/internal/storage"
)

var validMonitorTypes = map[string]bool{
	storage.TypeHTTP:    true,
	storage.TypeCert:    true,
	storage.TypeKeyword: true,
	storage.TypePort:    true,
	storage.TypeMySQL:   true,
	storage.TypeRedis:   true,
	storage.TypeICMP:    true,
	storage.TypePush:    true,
}

func validateMonitor(m *storage.Monitor) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validMonitorTypes[m.Type] {
		return fmt.Errorf("unknown monitor type: %s", m.Type)
	}
	if m.Interval < 1 {
		return fmt.Errorf("interval must be at least 1 second")
	}
	if m.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if m.Retries > 0 && m.RetryInterval < 1 {
		return fmt.Errorf("retry_interval must be at least 1 second")
	}
	if m.ResendInterval < 0 {
		return fmt.Errorf("resend_interval must not be negative")
	}
	return nil
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.store.ListMonitors(r.Context())
	if err != nil {
		s.logger.Error("list monitors", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, monitors)
}

func (s *Server) handleCreateMonitor(w http.ResponseWriter, r *http.Request) {
	var m storage.Monitor
	if err := readJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateMonitor(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateMonitor(r.Context(), &m); err != nil {
		s.logger.Error("create monitor", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.scheduler.AddOrReplace(&m)
	writeJSON(w, http.StatusCreated, &m)
}

func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMonitor(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}

	var m storage.Monitor
	if err := readJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.ID = existing.ID
	if err := validateMonitor(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateMonitor(r.Context(), &m); err != nil {
		s.logger.Error("update monitor", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.scheduler.AddOrReplace(&m)
	writeJSON(w, http.StatusOK, &m)
}

func (s *Server) handleDeleteMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}
	s.scheduler.Remove(m.ID)
	if err := s.store.DeleteMonitor(r.Context(), m.ID); err != nil {
		s.logger.Error("delete monitor", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePauseMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}
	if err := s.store.SetMonitorActive(r.Context(), m.ID, false); err != nil {
		s.logger.Error("pause monitor", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.scheduler.Pause(m.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

func (s *Server) handleResumeMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}
	if err := s.store.SetMonitorActive(r.Context(), m.ID, true); err != nil {
		s.logger.Error("resume monitor", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.scheduler.Resume(m.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func (s *Server) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	rows, err := s.store.ListRecentStatus(r.Context(), m.ID, limit)
	if err != nil {
		s.logger.Error("list status", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSetMonitorChannels(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMonitor(w, r)
	if !ok {
		return
	}
	var body struct {
		ChannelIDs []string `json:"channel_ids"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetMonitorChannels(r.Context(), m.ID, body.ChannelIDs); err != nil {
		s.logger.Error("set monitor channels", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadMonitor(w http.ResponseWriter, r *http.Request) (*storage.Monitor, bool) {
	id := r.PathValue("id")
	m, err := s.store.GetMonitor(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "monitor not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("load monitor", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return m, true
}
