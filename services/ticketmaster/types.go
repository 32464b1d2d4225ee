package ticketmaster

import (
	"strings"
	"time"

	"spot/models"
	"spot/utils"
)

// searchResponse is the envelope of /discovery/v2/events.json.
type searchResponse struct {
	Embedded *struct {
		Events []Event `json:"events"`
	} `json:"_embedded"`
}

// Event is the subset of the provider event payload that discovery uses.
type Event struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	URL             string           `json:"url"`
	Images          []Image          `json:"images"`
	Dates           *Dates           `json:"dates"`
	Classifications []Classification `json:"classifications"`
	PriceRanges     []PriceRange     `json:"priceRanges"`
	Embedded        *EventEmbedded   `json:"_embedded"`
}

type Image struct {
	URL string `json:"url"`
}

type Dates struct {
	Start *Start `json:"start"`
}

// Start carries the provider start fields. DateTime is RFC 3339 UTC.
type Start struct {
	DateTime  string `json:"dateTime"`
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

type Classification struct {
	Segment *NamedRef `json:"segment"`
	Genre   *NamedRef `json:"genre"`
}

type NamedRef struct {
	Name string `json:"name"`
}

type PriceRange struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

type EventEmbedded struct {
	Venues []Venue `json:"venues"`
}

type Venue struct {
	Name string    `json:"name"`
	City *NamedRef `json:"city"`
}

const (
	displayDateLayout = "Mon, Jan 2, 2006"
	displayTimeLayout = "3:04 PM"
)

// MapEvent flattens a provider event. Missing fields degrade to sentinels
// rather than failing the whole page.
func MapEvent(e Event) models.Event {
	out := models.Event{
		ID:          e.ID,
		Name:        e.Name,
		URL:         utils.SafeHTTPURL(e.URL),
		Image:       models.PlaceholderImage,
		Date:        models.UnknownDate,
		PriceRanges: []models.PriceRange{},
	}

	if len(e.Images) > 0 {
		if img := utils.SafeHTTPURL(e.Images[0].URL); img != "" {
			out.Image = img
		}
	}

	if e.Dates != nil && e.Dates.Start != nil {
		start := e.Dates.Start
		if ts, ok := parseDateTime(start.DateTime); ok {
			out.Date = ts.Format(displayDateLayout)
			out.StartsAt = &ts
		}
		// The venue's calendar day matches localTime; dateTime is UTC.
		if day, ok := parseLocalDate(start.LocalDate); ok {
			out.Date = day.Format(displayDateLayout)
		}
		out.Time = formatLocalTime(start.LocalTime)
	}

	if len(e.Classifications) > 0 {
		c := e.Classifications[0]
		if c.Segment != nil {
			out.Segment = c.Segment.Name
		}
		if c.Genre != nil {
			out.Genre = c.Genre.Name
		}
	}

	for _, pr := range e.PriceRanges {
		currency := pr.Currency
		if currency == "" {
			currency = "USD"
		}
		out.PriceRanges = append(out.PriceRanges, models.PriceRange{Min: pr.Min, Max: pr.Max, Currency: currency})
	}

	if e.Embedded != nil && len(e.Embedded.Venues) > 0 {
		v := e.Embedded.Venues[0]
		out.Venue = v.Name
		if v.City != nil {
			out.City = v.City.Name
		}
	}

	return out
}

func parseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

func parseLocalDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// formatLocalTime turns "19:30:00" into "7:30 PM".
func formatLocalTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(displayTimeLayout)
		}
	}
	return ""
}
