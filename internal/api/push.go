package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// handlePush ingests an agent heartbeat: GET /api/push/{token}?status=up
// &msg=...&ping=<ms>. The row it writes is marked with details.source =
// "push"; the push checker judges freshness from these rows only.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	m, err := s.store.GetMonitorByPushToken(r.Context(), token)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	if err != nil {
		s.logger.Error("push: lookup token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	q := r.URL.Query()
	status := storage.StatusUp
	if q.Get("status") == "down" {
		status = storage.StatusDown
	}
	msg := q.Get("msg")
	if msg == "" {
		msg = "OK"
	}
	var ping *int64
	if p := q.Get("ping"); p != "" {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid ping")
			return
		}
		ping = &v
	}

	details := map[string]any{"source": "push"}
	if _, err := s.recorder.Record(r.Context(), m.ID, m.Type, status, msg, ping, details); err != nil {
		writeError(w, http.StatusInternalServerError, "record heartbeat failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
