package opinion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peacoop/campaign-site/internal/sheets"
	"github.com/peacoop/campaign-site/internal/sheets/sheetstest"
	"github.com/peacoop/campaign-site/internal/types"
)

func subs(tags ...string) []types.OpinionSubmission {
	out := make([]types.OpinionSubmission, len(tags))
	for i, t := range tags {
		out[i] = types.OpinionSubmission{Tags: t}
	}
	return out
}

func TestBuildTagFrequency_DedupesWithinSubmission(t *testing.T) {
	got := BuildTagFrequency(subs("A, b,B"), DefaultTagLimit)
	assert.Equal(t, []types.TagCount{{Tag: "a", Count: 1}, {Tag: "b", Count: 1}}, got)
}

func TestBuildTagFrequency_RanksByCount(t *testing.T) {
	got := BuildTagFrequency(subs("x", "x", "y"), DefaultTagLimit)
	assert.Equal(t, []types.TagCount{{Tag: "x", Count: 2}, {Tag: "y", Count: 1}}, got)
}

func TestBuildTagFrequency_StableTies(t *testing.T) {
	got := BuildTagFrequency(subs("c, a", "b", "a, b", "d"), DefaultTagLimit)
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].Tag)
	assert.Equal(t, "b", got[1].Tag)
	assert.Equal(t, "c", got[2].Tag, "ties keep first-seen order")
	assert.Equal(t, "d", got[3].Tag)
}

func TestBuildTagFrequency_Limit(t *testing.T) {
	var tags []types.OpinionSubmission
	for i := 0; i < 40; i++ {
		tags = append(tags, types.OpinionSubmission{Tags: string(rune('a'+i%26)) + string(rune('a'+i/26))})
	}
	assert.Len(t, BuildTagFrequency(tags, 30), 30)
	assert.Len(t, BuildTagFrequency(tags, 0), 40)
}

func TestBuildTagFrequency_Empty(t *testing.T) {
	assert.Empty(t, BuildTagFrequency(nil, DefaultTagLimit))
	assert.Empty(t, BuildTagFrequency(subs("", " , "), DefaultTagLimit))
}

func TestFontScale(t *testing.T) {
	assert.InDelta(t, 0.8, FontScale(1, 1, 5, 0.8, 2.4), 1e-9)
	assert.InDelta(t, 2.4, FontScale(5, 1, 5, 0.8, 2.4), 1e-9)
	assert.InDelta(t, 1.6, FontScale(3, 1, 5, 0.8, 2.4), 1e-9)
}

func TestScale_EqualCountsUseMinimum(t *testing.T) {
	ranked := []types.TagCount{{Tag: "a", Count: 5}, {Tag: "b", Count: 5}, {Tag: "c", Count: 5}}
	for _, tc := range Scale(ranked, 0.8, 2.4) {
		assert.Equal(t, 0.8, tc.Scale, "tag %s", tc.Tag)
	}
}

type fakeFetcher struct {
	rows []types.Row
	err  error
}

func (f *fakeFetcher) FetchOpinions(context.Context) ([]types.Row, error) {
	return f.rows, f.err
}

func TestAggregator_Reload(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{Fetcher: &fakeFetcher{rows: []types.Row{
		{"tags": "Queue, loans"},
		{"tags": "queue"},
	}}})

	cloud, err := agg.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, cloud, 2)
	assert.Equal(t, "queue", cloud[0].Tag)
	assert.InDelta(t, DefaultMaxScale, cloud[0].Scale, 1e-9)
	assert.InDelta(t, DefaultMinScale, cloud[1].Scale, 1e-9)
	assert.Equal(t, cloud, agg.Cloud())
}

func TestAggregator_UnreachableStoreGivesEmptyCloud(t *testing.T) {
	fetcher := &fakeFetcher{rows: []types.Row{{"tags": "a"}}}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher})
	_, err := agg.Reload(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, agg.Cloud())

	fetcher.err = errors.New("unreachable")
	cloud, err := agg.Reload(context.Background())
	require.Error(t, err)
	assert.Empty(t, cloud)
	assert.NotNil(t, agg.Cloud())
	assert.Empty(t, agg.Cloud())
}

type countingSubmitter struct {
	mu     sync.Mutex
	calls  []types.OpinionSubmission
	result *types.SubmitResult
	err    error
}

func (c *countingSubmitter) SubmitOpinion(_ context.Context, sub types.OpinionSubmission, token string) (*types.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sub)
	if c.result == nil && c.err == nil {
		return &types.SubmitResult{Success: true}, nil
	}
	return c.result, c.err
}

func (c *countingSubmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(_, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, to)
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestForm_EmptyDetailsNeverSubmits(t *testing.T) {
	submitter := &countingSubmitter{}
	rec := &recorder{}
	form := NewForm(FormOptions{Submitter: submitter, Locale: "en", FeedbackDuration: 5 * time.Second, OnTransition: rec.record})

	fb := form.Submit(context.Background(), types.OpinionForm{Title: "Queue", Tags: []string{"service"}, Details: "   "})

	assert.Equal(t, FeedbackError, fb.Kind)
	assert.Equal(t, MessagesFor("en").Incomplete, fb.Message)
	assert.Equal(t, 5*time.Second, fb.DismissAfter)
	assert.Equal(t, 0, submitter.count())
	assert.Equal(t, []State{Validating, Invalid, Idle}, rec.all())
	assert.Equal(t, Idle, form.State())
}

func TestForm_ValidationRules(t *testing.T) {
	tests := []struct {
		name  string
		input types.OpinionForm
	}{
		{"blank title", types.OpinionForm{Title: " ", Tags: []string{"a"}, Details: "d"}},
		{"no tags", types.OpinionForm{Title: "t", Details: "d"}},
		{"blank tags only", types.OpinionForm{Title: "t", Tags: []string{" "}, Details: "d"}},
		{"empty details", types.OpinionForm{Title: "t", Tags: []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &countingSubmitter{}
			form := NewForm(FormOptions{Submitter: submitter, Locale: "th"})
			fb := form.Submit(context.Background(), tt.input)
			assert.Equal(t, MessagesFor("th").Incomplete, fb.Message)
			assert.Equal(t, 0, submitter.count())
		})
	}
}

func TestForm_SuccessSchedulesReaggregation(t *testing.T) {
	store := sheetstest.New()
	defer store.Close()

	client, err := sheets.New(sheets.Options{Endpoint: store.URL(), CallbackTimeout: time.Second})
	require.NoError(t, err)

	agg := NewAggregator(AggregatorOptions{Fetcher: client, Timeout: time.Second})
	defer agg.Stop()

	rec := &recorder{}
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	form := NewForm(FormOptions{
		Submitter:        client,
		Aggregator:       agg,
		ReaggregateDelay: 200 * time.Millisecond,
		Locale:           "en",
		Now:              func() time.Time { return now },
		OnTransition:     rec.record,
	})

	fb := form.Submit(context.Background(), types.OpinionForm{
		Title:   " Long queues ",
		Tags:    []string{"Service", "queue"},
		Details: "Too slow at the branch",
	})
	assert.Equal(t, FeedbackSuccess, fb.Kind)
	assert.Equal(t, MessagesFor("en").Success, fb.Message)
	assert.Equal(t, []State{Validating, Submitting, Success, Idle}, rec.all())

	submissions := store.Submissions()
	require.Len(t, submissions, 1)
	assert.Equal(t, "Long queues", submissions[0]["title"])
	assert.Equal(t, "Service,queue", submissions[0]["tags"])
	assert.Equal(t, "2024-01-15T10:00:00.000Z", submissions[0]["timestamp"])

	assert.Empty(t, agg.Cloud(), "reaggregation waits for the delay")
	require.Eventually(t, func() bool { return len(agg.Cloud()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "service", agg.Cloud()[0].Tag)
}

func TestForm_StoreRejectionSurfacesMessage(t *testing.T) {
	submitter := &countingSubmitter{
		result: &types.SubmitResult{Success: false, Error: "Sheet is locked"},
		err:    &sheets.StoreError{Message: "Sheet is locked"},
	}
	rec := &recorder{}
	form := NewForm(FormOptions{Submitter: submitter, Locale: "en", OnTransition: rec.record})

	fb := form.Submit(context.Background(), types.OpinionForm{Title: "t", Tags: []string{"a"}, Details: "d"})
	assert.Equal(t, FeedbackError, fb.Kind)
	assert.Equal(t, "Sheet is locked", fb.Message)
	assert.Equal(t, []State{Validating, Submitting, Failure, Idle}, rec.all())
}

func TestForm_GenericFailureMessage(t *testing.T) {
	tests := []struct {
		name      string
		submitter *countingSubmitter
	}{
		{"transport failure", &countingSubmitter{err: &sheets.TransportError{Kind: sheets.Timeout}}},
		{"rejection without text", &countingSubmitter{result: &types.SubmitResult{Success: false}, err: &sheets.StoreError{}}},
		{"unexpected shape", &countingSubmitter{result: &types.SubmitResult{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := NewForm(FormOptions{Submitter: tt.submitter, Locale: "en"})
			fb := form.Submit(context.Background(), types.OpinionForm{Title: "t", Tags: []string{"a"}, Details: "d"})
			assert.Equal(t, FeedbackError, fb.Kind)
			assert.Equal(t, MessagesFor("en").Failure, fb.Message)
			assert.Equal(t, Idle, form.State())
		})
	}
}

func TestAggregator_StopCancelsScheduledReload(t *testing.T) {
	fetcher := &fakeFetcher{rows: []types.Row{{"tags": "a"}}}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher})

	agg.ReloadAfter(50 * time.Millisecond)
	agg.Stop()
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, agg.Cloud())
}

func TestAggregator_NumericTagCell(t *testing.T) {
	store := sheetstest.New()
	defer store.Close()
	store.SetOpinions([]map[string]any{
		{"title": "a", "tags": "loans, savings", "details": "d"},
		{"title": 2567, "tags": 2567, "details": 15.5},
	})

	client, err := sheets.New(sheets.Options{Endpoint: store.URL(), CallbackTimeout: time.Second})
	require.NoError(t, err)

	agg := NewAggregator(AggregatorOptions{Fetcher: client})
	cloud, err := agg.Reload(context.Background())
	require.NoError(t, err)

	tags := make([]string, len(cloud))
	for i, tc := range cloud {
		tags[i] = tc.Tag
		assert.Equal(t, 1, tc.Count)
	}
	assert.Equal(t, []string{"loans", "savings", "2567"}, tags)
}

func TestAggregator_SubscribeSeesEveryReload(t *testing.T) {
	fetcher := &fakeFetcher{rows: []types.Row{{"tags": "a, b"}}}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher})

	var got [][]types.TagCount
	agg.Subscribe(func(cloud []types.TagCount) { got = append(got, cloud) })

	_, err := agg.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 2)
	got[0][0].Tag = "changed"
	assert.Equal(t, "a", agg.Cloud()[0].Tag, "listeners get their own copy")

	fetcher.err = errors.New("unreachable")
	_, err = agg.Reload(context.Background())
	require.Error(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[1], "a failed reload publishes the empty cloud")
}

type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSubmitter) SubmitOpinion(ctx context.Context, _ types.OpinionSubmission, _ string) (*types.SubmitResult, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return &types.SubmitResult{Success: true}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type edge struct{ from, to State }

func TestForm_ConcurrentSubmissionsKeepTheirOwnState(t *testing.T) {
	submitter := &blockingSubmitter{started: make(chan struct{}), release: make(chan struct{})}

	var mu sync.Mutex
	var edges []edge
	form := NewForm(FormOptions{Submitter: submitter, Locale: "en", OnTransition: func(from, to State) {
		mu.Lock()
		defer mu.Unlock()
		edges = append(edges, edge{from, to})
	}})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			form.Submit(context.Background(), types.OpinionForm{Title: "t", Tags: []string{"a"}, Details: "d"})
		}()
	}
	<-submitter.started
	<-submitter.started

	assert.Equal(t, 2, form.InFlight())
	assert.Equal(t, Submitting, form.State())

	fb := form.Submit(context.Background(), types.OpinionForm{Title: "t"})
	assert.Equal(t, Invalid, fb.Outcome)
	assert.Equal(t, Submitting, form.State(), "a finished submission does not reset the others")

	close(submitter.release)
	wg.Wait()
	assert.Equal(t, 0, form.InFlight())
	assert.Equal(t, Idle, form.State())

	legal := map[edge]bool{
		{Idle, Validating}:       true,
		{Validating, Invalid}:    true,
		{Validating, Submitting}: true,
		{Invalid, Idle}:          true,
		{Submitting, Success}:    true,
		{Submitting, Failure}:    true,
		{Success, Idle}:          true,
		{Failure, Idle}:          true,
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, edges, 2*4+3)
	for _, e := range edges {
		assert.True(t, legal[e], "unexpected transition %s -> %s", e.from, e.to)
	}
}
