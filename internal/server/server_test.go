package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peacoop/campaign-site/internal/opinion"
	"github.com/peacoop/campaign-site/internal/server/ratelimit"
	"github.com/peacoop/campaign-site/internal/sheets"
	"github.com/peacoop/campaign-site/internal/sheets/sheetstest"
	"github.com/peacoop/campaign-site/internal/site"
	"github.com/peacoop/campaign-site/internal/types"
	"github.com/peacoop/campaign-site/web"
)

type testServer struct {
	*Server
	store *sheetstest.Store
}

func seedStore(store *sheetstest.Store, downloads int) {
	store.SetTable(types.TableCandidates, []map[string]any{
		{"candidateNumber": 9, "imageUrl": "https://img.example/9.jpg", "position": "Chair"},
	})
	store.SetTable(types.TablePolicies, []map[string]any{
		{"id": 1, "icon": "fa-bolt", "title": "Fast loans", "description": "d", "tags": []string{"fast"}},
	})
	store.SetTable(types.TableArticles, []map[string]any{
		{"id": 1, "title": "Meeting", "date": "2024-01-15"},
	})
	rows := make([]map[string]any, downloads)
	for i := range rows {
		name := fmt.Sprintf("report-%02d.pdf", i+1)
		if i == 0 {
			name = "budget-2024.pdf"
		}
		rows[i] = map[string]any{"id": i + 1, "filename": name, "fileType": "pdf", "fileSize": 2048}
	}
	store.SetTable(types.TableDownloads, rows)
	store.SetTable(types.TableTimelines, []map[string]any{
		{"id": 1, "candidateNumber": 9, "year": "2553", "role": "Clerk"},
	})
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *testServer {
	t.Helper()

	store := sheetstest.New()
	t.Cleanup(store.Close)
	seedStore(store, 12)

	registry := prometheus.NewRegistry()
	storeMetrics, err := sheets.NewMetrics("", registry)
	require.NoError(t, err)

	client, err := sheets.New(sheets.Options{
		Endpoint:        store.URL(),
		CallbackTimeout: 200 * time.Millisecond,
		Metrics:         storeMetrics,
	})
	require.NoError(t, err)

	tags := opinion.NewAggregator(opinion.AggregatorOptions{Fetcher: client})
	form := opinion.NewForm(opinion.FormOptions{
		Submitter:        client,
		Aggregator:       tags,
		ReaggregateDelay: time.Hour,
		FeedbackDuration: 5 * time.Second,
		Locale:           "en",
	})
	coordinator := site.NewCoordinator(site.Options{
		Fetcher:  client,
		Template: web.IndexHTML,
		Locale:   "en",
		Subjects: []types.SubjectID{"9", "10"},
		Cloud:    tags,
	})

	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	s, err := New(Config{
		Site:      coordinator,
		Form:      form,
		Tags:      tags,
		Locale:    "en",
		RateLimit: rl,
		Registry:  registry,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return &testServer{Server: s, store: store}
}

func (s *testServer) do(method, target string, body string, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["loading"])
	assert.NotContains(t, resp, "loaded_at")

	s.do(http.MethodGet, "/", "", "")
	w = s.do(http.MethodGet, "/health", "", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "loaded_at")
}

func TestPage_RendersOnFirstRequestOnly(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Fast loans")
	assert.Contains(t, w.Body.String(), "https://img.example/9.jpg")

	w = s.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.store.JSONHits(types.TableCandidates), "second request reuses the snapshot")
}

func TestPage_UnknownPath(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPage_ShowsTagsAfterCloudReload(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "housing")
	assert.Contains(t, w.Body.String(), `class="no-tags"`)

	s.store.SetOpinions([]map[string]any{
		{"title": "a", "tags": "housing, loans", "details": "d"},
	})
	_, err := s.tags.Reload(context.Background())
	require.NoError(t, err)

	w = s.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "housing")
	assert.Equal(t, 2, strings.Count(body, `class="tag-cloud-item"`))
	assert.NotContains(t, body, `class="no-tags"`)
	assert.Contains(t, body, "Fast loans", "refresh keeps the rendered tables")
	assert.Equal(t, 1, s.store.JSONHits(types.TableCandidates), "refresh does not reload tables")
}

func TestReload(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/reload", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp reloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.ElementsMatch(t, types.PageTables, resp.Rendered)
	assert.False(t, resp.LoadedAt.IsZero())
}

func TestReload_PartialWhenTableFails(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.FailJSON(types.TableTimelines)
	s.store.BreakCallback(types.TableTimelines)

	w := s.do(http.MethodPost, "/reload", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp reloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "partial", resp.Status)
	assert.Len(t, resp.Rendered, len(types.PageTables)-1)
	assert.NotContains(t, resp.Rendered, types.TableTimelines)
}

func TestDownloadsFragment(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/reload", "", "").Code)

	tests := []struct {
		name       string
		query      string
		wantItems  int
		wantToggle bool
	}{
		{"collapsed", "", 9, true},
		{"expanded", "?expanded=true", 12, true},
		{"filtered", "?q=" + url.QueryEscape("BUDGET"), 1, true},
		{"filtered expanded", "?q=budget&expanded=1", 1, true},
		{"no match", "?q=minutes", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/fragments/downloads"+tt.query, "", "")
			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			assert.Equal(t, tt.wantItems, strings.Count(body, `class="download-item"`))
			assert.Equal(t, tt.wantToggle, strings.Contains(body, "downloads-toggle"))
		})
	}
}

func TestDownloadsFragment_BadToggle(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodGet, "/fragments/downloads?expanded=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagsFragment(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/fragments/tags", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="no-tags"`)

	s.store.SetOpinions([]map[string]any{
		{"title": "a", "tags": "Queue, loans", "details": "d"},
		{"title": "b", "tags": "queue", "details": "d"},
	})
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/reload", "", "").Code)

	w = s.do(http.MethodGet, "/fragments/tags", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), `class="tag-cloud-item"`))
	assert.Contains(t, w.Body.String(), `data-count="2"`)
}

func TestSubmitOpinion_FormEncoded(t *testing.T) {
	s := newTestServer(t, nil)

	form := url.Values{}
	form.Set("title", "Long queues")
	form.Add("tags", "service")
	form.Add("tags", "queue")
	form.Set("details", "Too slow at the branch")

	w := s.do(http.MethodPost, "/opinions", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, w.Code)

	var resp feedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, opinion.FeedbackSuccess, resp.Kind)
	assert.Equal(t, int64(5000), resp.DismissAfterMS)

	submissions := s.store.Submissions()
	require.Len(t, submissions, 1)
	assert.Equal(t, "service,queue", submissions[0]["tags"])
}

func TestSubmitOpinion_JSON(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/opinions", `{"title":"t","tags":["a"],"details":"d"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.store.Submissions(), 1)
}

func TestSubmitOpinion_Incomplete(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/opinions", `{"title":"t","tags":["a"],"details":"  "}`, "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp feedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, opinion.FeedbackError, resp.Kind)
	assert.Equal(t, opinion.MessagesFor("en").Incomplete, resp.Message)
	assert.Empty(t, s.store.Submissions())
}

func TestSubmitOpinion_MalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodPost, "/opinions", `{"title":`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.store.Submissions())
}

func TestSubmitOpinion_StoreRejects(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.SetSubmitError("Sheet is locked")

	w := s.do(http.MethodPost, "/opinions", `{"title":"t","tags":["a"],"details":"d"}`, "application/json")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp feedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Sheet is locked", resp.Message)
}

func TestRateLimit_Opinions(t *testing.T) {
	s := newTestServer(t, &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	})

	body := `{"title":"t","tags":["a"],"details":""}`
	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, "/opinions", body, "application/json")
		require.Equal(t, http.StatusBadRequest, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}

	w := s.do(http.MethodPost, "/opinions", body, "application/json")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp["error"])
	assert.Contains(t, resp, "retry_after")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodOptions, "/opinions", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodPost, "/reload", "", "")

	w := s.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `campaign_http_requests_total{code="200",method="POST",route="/reload"} 1`)
	assert.Contains(t, body, "campaign_store_requests_total")
}

func TestExtractClientID(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4567"
	assert.Equal(t, "203.0.113.7", s.extractClientID(req))

	req.RemoteAddr = "garbage"
	assert.Equal(t, "garbage", s.extractClientID(req))
}
