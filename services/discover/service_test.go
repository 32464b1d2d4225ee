package discover

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot/models"
	"spot/services/events"
	"spot/services/personalize"
)

type fakeAggregator struct {
	countries map[string]string
	result    events.AggregateResult
	err       error
	panicMsg  string
	got       events.AggregateRequest
}

func (f *fakeAggregator) ResolveCountry(name string) string {
	if code, ok := f.countries[name]; ok {
		return code
	}
	return "US"
}

func (f *fakeAggregator) Aggregate(_ context.Context, req events.AggregateRequest) (events.AggregateResult, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.got = req
	return f.result, f.err
}

type fakePersonalizer struct {
	outcome personalize.Outcome
	calls   int
	got     personalize.Request
}

func (f *fakePersonalizer) Personalize(_ context.Context, req personalize.Request) personalize.Outcome {
	f.calls++
	f.got = req
	return f.outcome
}

func evs(idList ...string) []models.Event {
	out := make([]models.Event, len(idList))
	for i, id := range idList {
		out[i] = models.Event{ID: id, Name: id, Date: "Sat, Mar 15, 2025", Segment: "Music"}
	}
	return out
}

func newTestService(agg *fakeAggregator, p *fakePersonalizer) *Service {
	svc := NewService(agg, p)
	svc.newID = func() string { return "search-1" }
	return svc
}

func TestSearchPersonalized(t *testing.T) {
	agg := &fakeAggregator{
		countries: map[string]string{"Canada": "CA"},
		result:    events.AggregateResult{Events: evs("a", "b", "c")},
	}
	p := &fakePersonalizer{outcome: personalize.Outcome{Events: evs("c", "a")}}
	svc := newTestService(agg, p)

	res, err := svc.Search(context.Background(), models.DiscoverQuery{
		City:       " Toronto ",
		Country:    "Canada",
		Interests:  []string{"jazz", "Jazz", " rooftop bars "},
		Categories: []string{"music", "", "Music", "sports"},
	})
	require.NoError(t, err)

	assert.Equal(t, "search-1", res.SearchID)
	assert.True(t, res.Personalized)
	assert.Equal(t, 3, res.Aggregated)
	assert.Equal(t, []string{"c", "a"}, idsOf(res.Events))

	assert.Equal(t, events.AggregateRequest{City: "Toronto", CountryCode: "CA", Categories: []string{"Music", "Sports"}}, agg.got)
	assert.Equal(t, []string{"Jazz", "Rooftop bars"}, p.got.Interests)
	assert.Equal(t, "Canada", p.got.Country)
	assert.Len(t, p.got.Events, 3)
}

func TestSearchFallsBackOnPersonalizationFailure(t *testing.T) {
	failures := []error{
		personalize.ErrNotConfigured,
		personalize.ErrMalformedResponse,
		personalize.ErrNoValidEvents,
		&personalize.StatusError{StatusCode: 502},
	}
	for _, failure := range failures {
		agg := &fakeAggregator{result: events.AggregateResult{Events: evs("a", "b")}}
		p := &fakePersonalizer{outcome: personalize.Outcome{Err: failure}}

		res, err := newTestService(agg, p).Search(context.Background(), models.DiscoverQuery{})
		require.NoError(t, err, "failure %v", failure)
		assert.False(t, res.Personalized)
		assert.Equal(t, []string{"a", "b"}, idsOf(res.Events))
		assert.ErrorIs(t, res.Fallback, failure)
	}
}

func TestSearchNoEventsSkipsPersonalization(t *testing.T) {
	agg := &fakeAggregator{result: events.AggregateResult{
		SubQueries: []events.SubQueryResult{{Err: errors.New("down")}, {Err: errors.New("down")}},
	}}
	p := &fakePersonalizer{}

	res, err := newTestService(agg, p).Search(context.Background(), models.DiscoverQuery{Categories: []string{"Music"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEvents)
	assert.Equal(t, MsgNoEvents, UserMessage(err))
	assert.Empty(t, res.Events)
	assert.Zero(t, p.calls)
}

func TestSearchNotConfigured(t *testing.T) {
	agg := &fakeAggregator{err: events.ErrNotConfigured}
	_, err := newTestService(agg, &fakePersonalizer{}).Search(context.Background(), models.DiscoverQuery{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, err, events.ErrNotConfigured)
	assert.Equal(t, MsgNotConfigured, UserMessage(err))
}

func TestSearchUnexpectedErrorIsGeneric(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("disk on fire")}
	_, err := newTestService(agg, &fakePersonalizer{}).Search(context.Background(), models.DiscoverQuery{})
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, MsgFailed, UserMessage(err))
	assert.Equal(t, MsgFailed, UserMessage(errors.New("anything")))
}

func TestSearchRecoversPanic(t *testing.T) {
	agg := &fakeAggregator{panicMsg: "nil map"}
	res, err := newTestService(agg, &fakePersonalizer{}).Search(context.Background(), models.DiscoverQuery{})
	assert.ErrorIs(t, err, ErrFailed)
	assert.Empty(t, res.Events)
	assert.Equal(t, "search-1", res.SearchID)
}

func TestSearchCancelledDuringPersonalization(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agg := &fakeAggregator{result: events.AggregateResult{Events: evs("a")}}
	p := &cancellingPersonalizer{cancel: cancel}

	_, err := NewService(agg, p).Search(ctx, models.DiscoverQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

type cancellingPersonalizer struct{ cancel context.CancelFunc }

func (c *cancellingPersonalizer) Personalize(context.Context, personalize.Request) personalize.Outcome {
	c.cancel()
	return personalize.Outcome{Events: evs("z")}
}

func idsOf(list []models.Event) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func TestNormalizeTerms(t *testing.T) {
	got := NormalizeTerms([]string{" live music", "Live Music", "", "   ", "éclairs", "Éclairs", "STRASSE", "straße"})
	assert.Equal(t, []string{"Live music", "Éclairs", "STRASSE"}, got)

	assert.Equal(t, []string{"Jazz", "Food trucks"}, SplitTerms("jazz, food trucks,,JAZZ,"))
	assert.Empty(t, NormalizeTerms(nil))
}

func TestSearchCapsCategories(t *testing.T) {
	assert.Len(t, events.DefaultCategories(), MaxCategories)

	var requested []string
	for _, c := range events.DefaultCategories() {
		requested = append(requested, c.Name)
	}
	requested = append(requested, "Extra1", "Extra2", "music")

	agg := &fakeAggregator{result: events.AggregateResult{Events: evs("a")}}
	p := &fakePersonalizer{outcome: personalize.Outcome{Err: personalize.ErrNotConfigured}}
	_, err := newTestService(agg, p).Search(context.Background(), models.DiscoverQuery{Categories: requested})
	require.NoError(t, err)

	require.Len(t, agg.got.Categories, MaxCategories)
	assert.Equal(t, "Music", agg.got.Categories[0])
	assert.Equal(t, "Nightlife", agg.got.Categories[MaxCategories-1])
	assert.Equal(t, agg.got.Categories, p.got.Categories)
}
