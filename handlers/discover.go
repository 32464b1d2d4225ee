package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"spot/api"
	"spot/models"
	"spot/services/discover"
)

type discoverSessions interface {
	Get(clientID string) *discover.Session
	Lookup(clientID string) (*discover.Session, bool)
}

var _ discoverSessions = (*discover.Sessions)(nil)

// DiscoverHandler serves the personalized discovery flow.
type DiscoverHandler struct {
	Sessions discoverSessions
	// Timeout bounds one search, including personalization. Zero means no limit.
	Timeout time.Duration
}

func NewDiscoverHandler(sessions discoverSessions, timeout time.Duration) *DiscoverHandler {
	return &DiscoverHandler{Sessions: sessions, Timeout: timeout}
}

// Search runs one discovery search for the calling client.
func (h *DiscoverHandler) Search(w http.ResponseWriter, r *http.Request) {
	var q models.DiscoverQuery
	if err := decodeBody(w, r, &q); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	clientID := api.GetClientID(r)
	res, err := h.Sessions.Get(clientID).Run(ctx, q)
	if err != nil {
		status := searchStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[discover] client=%s search failed: %v", clientID, err)
		}
		msg := discover.UserMessage(err)
		if errors.Is(err, discover.ErrSuperseded) {
			msg = err.Error()
		}
		jsonError(w, msg, status)
		return
	}

	events := res.Events
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, models.DiscoverResponse{
		SearchID:     res.SearchID,
		Events:       events,
		Total:        len(events),
		Personalized: res.Personalized,
	})
}

// State returns the {events, loading, error} view of the caller's session.
func (h *DiscoverHandler) State(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Sessions.Lookup(api.GetClientID(r))
	if !ok {
		writeJSON(w, http.StatusOK, models.DiscoverState{Events: []models.Event{}})
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// Reset clears a settled session back to idle. A loading session is left alone.
func (h *DiscoverHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Sessions.Lookup(api.GetClientID(r))
	if !ok {
		writeJSON(w, http.StatusOK, models.DiscoverState{Events: []models.Event{}})
		return
	}
	session.Reset()
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func searchStatus(err error) int {
	switch {
	case errors.Is(err, discover.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, discover.ErrNoEvents):
		return http.StatusNotFound
	case errors.Is(err, discover.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
