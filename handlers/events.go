package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"spot/models"
	"spot/services/events"
)

type eventLister interface {
	ResolveCountry(name string) string
	ListSegment(ctx context.Context, segment, city, countryCode string) ([]models.Event, error)
}

var _ eventLister = (*events.Aggregator)(nil)

// EventsHandler serves single-segment listings and the category catalogue.
type EventsHandler struct {
	Events     eventLister
	Categories []models.Category
}

func NewEventsHandler(lister eventLister, categories []models.Category) *EventsHandler {
	if categories == nil {
		categories = events.DefaultCategories()
	}
	return &EventsHandler{Events: lister, Categories: categories}
}

// List returns events for ?segment=&city=&country=. country accepts a
// two-letter code or a country name.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	segment := strings.TrimSpace(query.Get("segment"))
	city := strings.TrimSpace(query.Get("city"))
	country := strings.TrimSpace(query.Get("country"))

	code := strings.ToUpper(country)
	if !isCountryCode(code) {
		code = h.Events.ResolveCountry(country)
	}

	list, err := h.Events.ListSegment(r.Context(), segment, city, code)
	if err != nil {
		if errors.Is(err, events.ErrNotConfigured) {
			jsonError(w, "event search is not configured", http.StatusServiceUnavailable)
			return
		}
		log.Printf("[events] list segment=%q city=%q country=%s error: %v", segment, city, code, err)
		jsonError(w, "failed to fetch events", http.StatusBadGateway)
		return
	}
	if list == nil {
		list = []models.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": list,
		"total":  len(list),
	})
}

// ListCategories returns the selectable discovery categories.
func (h *EventsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.Categories,
	})
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
