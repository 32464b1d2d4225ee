package personalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"spot/internal/metrics"
	"spot/models"
)

const (
	// MaxPromptEvents caps the events embedded in the prompt.
	MaxPromptEvents = 30
	// MaxRecommendations caps the events the model is asked to return.
	MaxRecommendations = 20

	systemPrompt = "You are a JSON-only response assistant that returns personalized event recommendations. You NEVER include any text outside of the JSON."
)

var (
	// ErrMalformedResponse means the completion held no parseable JSON array.
	ErrMalformedResponse = errors.New("personalization response is not a JSON array")
	// ErrNoValidEvents means every returned record failed validation.
	ErrNoValidEvents = errors.New("personalization returned no valid events")
)

// Completer runs one chat completion.
type Completer interface {
	IsConfigured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request carries the aggregated events and the user's preferences.
type Request struct {
	Events     []models.Event
	City       string
	Country    string
	Interests  []string
	Categories []string
}

// Outcome is the result of one personalization attempt. Err is set on every
// failure path; Events is only meaningful when Err is nil.
type Outcome struct {
	Events   []models.Event
	Err      error
	Prompted int // events embedded in the prompt
	Dropped  int // returned records that failed validation
}

// OK reports whether the outcome can replace the aggregated list.
func (o Outcome) OK() bool {
	return o.Err == nil && len(o.Events) > 0
}

// Filter asks a language model to re-rank and filter events.
type Filter struct {
	completer Completer
}

func NewFilter(completer Completer) *Filter {
	return &Filter{completer: completer}
}

// Personalize never panics and never returns a partial success: on any
// failure Outcome.Err is set and the caller keeps its own list.
func (f *Filter) Personalize(ctx context.Context, req Request) Outcome {
	out := f.personalize(ctx, req)
	switch {
	case out.Err == nil:
		metrics.Personalization.WithLabelValues("ok").Inc()
	case errors.Is(out.Err, ErrNotConfigured):
		metrics.Personalization.WithLabelValues("not_configured").Inc()
	default:
		metrics.Personalization.WithLabelValues("error").Inc()
		log.Printf("[personalize] falling back to unfiltered events: %v", out.Err)
	}
	return out
}

func (f *Filter) personalize(ctx context.Context, req Request) Outcome {
	if f.completer == nil || !f.completer.IsConfigured() {
		return Outcome{Err: ErrNotConfigured}
	}

	slice := req.Events
	if len(slice) > MaxPromptEvents {
		slice = slice[:MaxPromptEvents]
	}
	out := Outcome{Prompted: len(slice)}

	prompt, err := BuildPrompt(req, slice)
	if err != nil {
		out.Err = err
		return out
	}

	content, err := f.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		out.Err = err
		return out
	}

	events, dropped, err := ParseEvents(content)
	out.Dropped = dropped
	if err != nil {
		out.Err = err
		return out
	}
	out.Events = events
	return out
}

// BuildPrompt renders the user prompt for the given event slice.
func BuildPrompt(req Request, slice []models.Event) (string, error) {
	data, err := json.Marshal(slice)
	if err != nil {
		return "", fmt.Errorf("marshal events for prompt: %w", err)
	}
	limit := min(MaxRecommendations, len(slice))

	return fmt.Sprintf(`I need you to analyze these events and provide personalized recommendations.

USER PREFERENCES:
- Location: %s, %s
- Interests: %s
- Categories: %s

RAW EVENT DATA:
%s

INSTRUCTIONS:
1. Analyze the events and select/rerank them based on the user's interests and preferred categories
2. Return only events that match the user's preferences
3. If the user has specified interests, prioritize events related to those interests
4. Return the events in the exact same data structure as provided
5. You can modify event names or descriptions slightly to better highlight why they match user interests
6. Return up to %d most relevant events

Return ONLY a valid JSON array of events in the EXACT same structure as the input data. Do not include any additional text or explanation in your response.`,
		orDefault(req.City, "Any"),
		orDefault(req.Country, "Any"),
		joinOrDefault(req.Interests, "None specified"),
		joinOrDefault(req.Categories, "None specified"),
		data,
		limit,
	), nil
}

// ParseEvents extracts the JSON array from a completion and keeps the records
// that carry id, name, date and segment. It returns how many were dropped.
func ParseEvents(content string) ([]models.Event, int, error) {
	raw, ok := ExtractJSONArray(content)
	if !ok {
		return nil, 0, ErrMalformedResponse
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	valid := make([]models.Event, 0, len(items))
	dropped := 0
	for _, item := range items {
		var e models.Event
		if err := json.Unmarshal(item, &e); err != nil || !isValid(e) {
			dropped++
			continue
		}
		if e.PriceRanges == nil {
			e.PriceRanges = []models.PriceRange{}
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil, dropped, ErrNoValidEvents
	}
	return valid, dropped, nil
}

// ExtractJSONArray returns content itself when it is a bare array, otherwise the
// substring from the first '[' to the last ']'.
func ExtractJSONArray(content string) (string, bool) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		return s, true
	}
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func isValid(e models.Event) bool {
	return strings.TrimSpace(e.ID) != "" &&
		strings.TrimSpace(e.Name) != "" &&
		strings.TrimSpace(e.Date) != "" &&
		strings.TrimSpace(e.Segment) != ""
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func joinOrDefault(items []string, fallback string) string {
	joined := strings.Join(items, ", ")
	if strings.TrimSpace(joined) == "" {
		return fallback
	}
	return joined
}
