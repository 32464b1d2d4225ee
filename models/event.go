package models

import "time"

// PlaceholderImage is served for events whose provider payload carries no image.
const PlaceholderImage = "/fallback.jpg"

// UnknownDate is the display date used when the provider omits a start timestamp.
const UnknownDate = "Unknown Date"

// PriceRange is one ticket price band. Min and Max are nil when the provider omits them.
type PriceRange struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// Event is the normalized record used throughout discovery.
type Event struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Image       string       `json:"image"`
	Date        string       `json:"date"` // "Sat, Mar 15, 2025" or UnknownDate
	Time        string       `json:"time"` // "7:30 PM" or empty
	Segment     string       `json:"segment"`
	Genre       string       `json:"genre"`
	PriceRanges []PriceRange `json:"priceRanges"`
	City        string       `json:"city"`
	Venue       string       `json:"venue"`

	// StartsAt is the provider timestamp the display date was derived from.
	// Used as the sort key; zero when the provider had no dateTime.
	StartsAt *time.Time `json:"startsAt,omitempty"`
}

// HasPricing reports whether any price band is available.
func (e Event) HasPricing() bool {
	return len(e.PriceRanges) > 0
}

// DiscoverQuery is the user input of one discovery search.
type DiscoverQuery struct {
	City       string   `json:"city"`
	Country    string   `json:"country"`
	Interests  []string `json:"interests"`
	Categories []string `json:"categories"`
}

// DiscoverResponse is returned by the discovery endpoint.
type DiscoverResponse struct {
	SearchID     string  `json:"searchId"`
	Events       []Event `json:"events"`
	Total        int     `json:"total"`
	Personalized bool    `json:"personalized"`
}

// DiscoverState mirrors the {events, loading, error} view of one client's search.
type DiscoverState struct {
	Events  []Event `json:"events"`
	Loading bool    `json:"loading"`
	Error   *string `json:"error"`
}

// Category is one selectable discovery category.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Segment string `json:"segment"`
}
