package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mirrorhua/watchdog/internal/storage"
)

var validChannelTypes = map[string]bool{
	storage.ChannelEmail:    true,
	storage.ChannelWebhook:  true,
	storage.ChannelWeChat:   true,
	storage.ChannelDingTalk: true,
	storage.ChannelWeCom:    true,
}

func validateChannel(ch *storage.NotificationChannel) error {
	if ch.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validChannelTypes[ch.Type] {
		return fmt.Errorf("unknown channel type: %s", ch.Type)
	}
	if len(ch.Settings) == 0 {
		return fmt.Errorf("settings is required")
	}
	return nil
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		s.logger.Error("list channels", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var ch storage.NotificationChannel
	if err := readJSON(r, &ch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateChannel(&ch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreateChannel(r.Context(), &ch); err != nil {
		s.logger.Error("create channel", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, &ch)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.loadChannel(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.loadChannel(w, r)
	if !ok {
		return
	}
	var ch storage.NotificationChannel
	if err := readJSON(r, &ch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ch.ID = existing.ID
	if err := validateChannel(&ch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpdateChannel(r.Context(), &ch); err != nil {
		s.logger.Error("update channel", "id", ch.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, &ch)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.loadChannel(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteChannel(r.Context(), ch.ID); err != nil {
		s.logger.Error("delete channel", "id", ch.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTestChannel dispatches a canned payload synchronously so the
// caller learns immediately whether the channel works.
func (s *Server) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type     string          `json:"type"`
		Settings json.RawMessage `json:"settings"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validChannelTypes[body.Type] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown channel type: %s", body.Type))
		return
	}
	if err := s.dispatcher.TestChannel(r.Context(), body.Type, body.Settings); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) loadChannel(w http.ResponseWriter, r *http.Request) (*storage.NotificationChannel, bool) {
	id := r.PathValue("id")
	ch, err := s.store.GetChannel(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "channel not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("load channel", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return ch, true
}
