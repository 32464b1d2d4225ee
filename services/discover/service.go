package discover

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"spot/internal/metrics"
	"spot/models"
	"spot/services/events"
	"spot/services/personalize"
)

// User-facing messages.
const (
	MsgNoEvents      = "No events found for your search criteria"
	MsgFailed        = "Failed to fetch events. Please try again."
	MsgNotConfigured = "Event discovery is not configured. Please try again later."
)

// MaxCategories bounds the categories of one search. Each category costs a
// provider request; the built-in catalogue has this many entries.
const MaxCategories = 20

var (
	ErrNoEvents      = errors.New("no events found")
	ErrNotConfigured = errors.New("discovery not configured")
	ErrFailed        = errors.New("discovery failed")
)

// Error is returned by Search. Message is safe to show to users; Err keeps
// the cause for logs and errors.Is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage returns the message to display for err.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return MsgFailed
}

type aggregator interface {
	ResolveCountry(name string) string
	Aggregate(ctx context.Context, req events.AggregateRequest) (events.AggregateResult, error)
}

type personalizer interface {
	Personalize(ctx context.Context, req personalize.Request) personalize.Outcome
}

var (
	_ aggregator   = (*events.Aggregator)(nil)
	_ personalizer = (*personalize.Filter)(nil)
)

// Result is one completed search.
type Result struct {
	SearchID     string
	Events       []models.Event
	Personalized bool
	Aggregated   int
	// Fallback holds the personalization failure when the aggregated list was kept.
	Fallback error
}

// Service runs the search-then-personalize flow.
type Service struct {
	agg    aggregator
	filter personalizer
	newID  func() string
}

func NewService(agg aggregator, filter personalizer) *Service {
	return &Service{
		agg:    agg,
		filter: filter,
		newID:  func() string { return uuid.NewString() },
	}
}

// Search aggregates events for q and personalizes them. Personalization
// failures are absorbed; the aggregated list is returned instead.
func (s *Service) Search(ctx context.Context, q models.DiscoverQuery) (res Result, err error) {
	res.SearchID = s.newID()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[discover] search %s panicked: %v", res.SearchID, r)
			res = Result{SearchID: res.SearchID}
			err = &Error{Kind: ErrFailed, Message: MsgFailed, Err: fmt.Errorf("panic: %v", r)}
		}
		metrics.Searches.WithLabelValues(searchLabel(res, err)).Inc()
	}()

	interests := NormalizeTerms(q.Interests)
	categories := NormalizeTerms(q.Categories)
	if len(categories) > MaxCategories {
		log.Printf("[discover] search %s: %d categories requested, keeping the first %d", res.SearchID, len(categories), MaxCategories)
		categories = categories[:MaxCategories]
	}
	city := strings.TrimSpace(q.City)
	countryCode := s.agg.ResolveCountry(q.Country)

	agg, err := s.agg.Aggregate(ctx, events.AggregateRequest{
		City:        city,
		CountryCode: countryCode,
		Categories:  categories,
	})
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotConfigured):
			return res, &Error{Kind: ErrNotConfigured, Message: MsgNotConfigured, Err: err}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return res, err
		default:
			log.Printf("[discover] search %s failed: %v", res.SearchID, err)
			return res, &Error{Kind: ErrFailed, Message: MsgFailed, Err: err}
		}
	}

	res.Aggregated = len(agg.Events)
	if len(agg.Events) == 0 {
		return res, &Error{Kind: ErrNoEvents, Message: MsgNoEvents}
	}

	outcome := s.filter.Personalize(ctx, personalize.Request{
		Events:     agg.Events,
		City:       city,
		Country:    strings.TrimSpace(q.Country),
		Interests:  interests,
		Categories: categories,
	})
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if outcome.OK() {
		res.Events = outcome.Events
		res.Personalized = true
	} else {
		res.Events = agg.Events
		res.Fallback = outcome.Err
	}

	log.Printf("[discover] search %s: %d aggregated, %d returned, personalized=%v", res.SearchID, res.Aggregated, len(res.Events), res.Personalized)
	return res, nil
}

func searchLabel(res Result, err error) string {
	switch {
	case err == nil && res.Personalized:
		return "personalized"
	case err == nil:
		return "fallback"
	case errors.Is(err, ErrNoEvents):
		return "no_events"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
