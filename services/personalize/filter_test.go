package personalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot/models"
)

type stubCompleter struct {
	configured bool
	reply      string
	err        error
	system     string
	prompt     string
	calls      int
}

func (s *stubCompleter) IsConfigured() bool { return s.configured }

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.system = system
	s.prompt = user
	return s.reply, s.err
}

func makeEvents(n int) []models.Event {
	out := make([]models.Event, n)
	for i := range out {
		out[i] = models.Event{
			ID:      fmt.Sprintf("E%03d", i+1),
			Name:    fmt.Sprintf("Event %d", i+1),
			Date:    "Sat, Mar 15, 2025",
			Segment: "Music",
		}
	}
	return out
}

func TestPromptEmbedsFirstThirtyEvents(t *testing.T) {
	stub := &stubCompleter{configured: true, reply: `[{"id":"E001","name":"Event 1","date":"Sat, Mar 15, 2025","segment":"Music"}]`}
	f := NewFilter(stub)

	out := f.Personalize(context.Background(), Request{Events: makeEvents(45), City: "Los Angeles", Country: "United States"})
	require.NoError(t, out.Err)
	assert.Equal(t, 30, out.Prompted)

	for i := 1; i <= 45; i++ {
		id := fmt.Sprintf(`"E%03d"`, i)
		if i <= 30 {
			assert.Contains(t, stub.prompt, id)
		} else {
			assert.NotContains(t, stub.prompt, id)
		}
	}
	assert.Contains(t, stub.prompt, "Return up to 20 most relevant events")
	assert.Contains(t, stub.prompt, "- Location: Los Angeles, United States")
	assert.Contains(t, stub.prompt, "- Interests: None specified")
	assert.Contains(t, stub.system, "JSON-only")
}

func TestPromptSmallInputCapsRecommendations(t *testing.T) {
	prompt, err := BuildPrompt(Request{Interests: []string{"Jazz", "Rooftops"}, Categories: []string{"Music"}}, makeEvents(4))
	require.NoError(t, err)
	assert.Contains(t, prompt, "Return up to 4 most relevant events")
	assert.Contains(t, prompt, "- Location: Any, Any")
	assert.Contains(t, prompt, "- Interests: Jazz, Rooftops")
	assert.Contains(t, prompt, "- Categories: Music")
}

func TestPersonalizeNotConfigured(t *testing.T) {
	stub := &stubCompleter{configured: false}
	out := NewFilter(stub).Personalize(context.Background(), Request{Events: makeEvents(3)})
	assert.ErrorIs(t, out.Err, ErrNotConfigured)
	assert.False(t, out.OK())
	assert.Zero(t, stub.calls)

	assert.ErrorIs(t, NewFilter(nil).Personalize(context.Background(), Request{}).Err, ErrNotConfigured)
}

func TestPersonalizeCompletionError(t *testing.T) {
	stub := &stubCompleter{configured: true, err: &StatusError{StatusCode: 500, Body: "boom"}}
	out := NewFilter(stub).Personalize(context.Background(), Request{Events: makeEvents(3)})

	var statusErr *StatusError
	require.True(t, errors.As(out.Err, &statusErr))
	assert.Equal(t, 500, statusErr.StatusCode)
	assert.False(t, out.OK())
}

func TestPersonalizeMalformedReplies(t *testing.T) {
	replies := []string{
		"I cannot help with that.",
		`{"id":"E001","name":"x","date":"d","segment":"s"}`,
		`[{"id":"E001",`,
		`Here you go: [not json]`,
	}
	for _, reply := range replies {
		stub := &stubCompleter{configured: true, reply: reply}
		out := NewFilter(stub).Personalize(context.Background(), Request{Events: makeEvents(3)})
		assert.ErrorIs(t, out.Err, ErrMalformedResponse, "reply %q", reply)
	}
}

func TestPersonalizeAllInvalidRecords(t *testing.T) {
	stub := &stubCompleter{configured: true, reply: `[{"name":"no id","date":"d","segment":"s"},{"id":"E002","date":"d","segment":"s"},{"id":5}]`}
	out := NewFilter(stub).Personalize(context.Background(), Request{Events: makeEvents(3)})
	assert.ErrorIs(t, out.Err, ErrNoValidEvents)
	assert.Equal(t, 3, out.Dropped)
}

func TestPersonalizeKeepsValidRecordsInModelOrder(t *testing.T) {
	reply := "Sure!\n```json\n" + `[
  {"id":"E003","name":"Jazz: Event 3","date":"Sat, Mar 15, 2025","segment":"Music","url":"u3"},
  {"id":"E001","name":"Event 1","date":"","segment":"Music"},
  {"id":"E002","name":"Event 2","date":"Sat, Mar 15, 2025","segment":"Music","priceRanges":[{"min":10,"max":null,"currency":"EUR"}]}
]` + "\n```"
	stub := &stubCompleter{configured: true, reply: reply}
	out := NewFilter(stub).Personalize(context.Background(), Request{Events: makeEvents(3)})
	require.NoError(t, out.Err)
	require.True(t, out.OK())

	require.Len(t, out.Events, 2)
	assert.Equal(t, "E003", out.Events[0].ID)
	assert.Equal(t, "Jazz: Event 3", out.Events[0].Name)
	assert.NotNil(t, out.Events[0].PriceRanges)
	assert.Equal(t, "E002", out.Events[1].ID)
	require.Len(t, out.Events[1].PriceRanges, 1)
	assert.Nil(t, out.Events[1].PriceRanges[0].Max)
	assert.Equal(t, 1, out.Dropped)
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`[1,2]`, `[1,2]`, true},
		{"  [ ]  ", "[ ]", true},
		{"```json\n[{\"a\":1}]\n```", `[{"a":1}]`, true},
		{`prefix [1] middle [2] suffix`, `[1] middle [2]`, true},
		{`no array here`, "", false},
		{`] backwards [`, "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractJSONArray(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractJSONArray(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	assert.True(t, strings.HasPrefix(systemPrompt, "You are"))
}

func TestParseEventsDropsMistypedRecords(t *testing.T) {
	reply := `[
  {"id":7,"name":"Numeric id","date":"Sat, Mar 15, 2025","segment":"Music"},
  {"id":"E002","name":"Event 2","date":"Sat, Mar 15, 2025","segment":"Music","priceRanges":"cheap"},
  {"id":"E003","name":"Event 3","date":"Sat, Mar 15, 2025","segment":"Music"}
]`
	got, dropped, err := ParseEvents(reply)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Len(t, got, 1)
	assert.Equal(t, "E003", got[0].ID)
	assert.NotNil(t, got[0].PriceRanges)

	_, dropped, err = ParseEvents(`[{"id":1,"name":"n","date":"d","segment":"s"}]`)
	assert.ErrorIs(t, err, ErrNoValidEvents)
	assert.Equal(t, 1, dropped)
}
