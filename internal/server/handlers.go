package server

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peacoop/campaign-site/internal/opinion"
	"github.com/peacoop/campaign-site/internal/render"
	"github.com/peacoop/campaign-site/internal/site"
	"github.com/peacoop/campaign-site/internal/types"
)

// maxFormBytes bounds an opinion submission body.
const maxFormBytes = 64 << 10

// loadKey coalesces concurrent page loads.
const loadKey = "page"

// load runs one LoadAll at a time; callers arriving meanwhile share its result.
// The load is detached from the request so an impatient client does not
// cancel it for everyone else.
func (s *Server) load(ctx context.Context) (*site.Snapshot, error) {
	ch := s.loads.DoChan(loadKey, func() (any, error) {
		_, err := s.site.LoadAll(context.WithoutCancel(ctx))
		return s.site.Latest(), err
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(*site.Snapshot)
		return snap, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handlePage serves the latest rendered page, rendering it on first use.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	snap := s.site.Latest()
	if snap == nil {
		var err error
		snap, err = s.load(r.Context())
		if snap == nil {
			if err == nil {
				err = &render.RenderError{Message: "page not rendered"}
			}
			s.logger.Error("Failed to render page", zap.Error(err))
			s.errorResponse(w, HTTPStatus(err), "failed to render page")
			return
		}
		if err != nil {
			s.logger.Warn("Page rendered with errors", zap.Error(err))
		}
	}

	s.htmlResponse(w, http.StatusOK, snap.HTML)
}

type reloadResponse struct {
	Status   string    `json:"status"`
	Rendered []string  `json:"rendered"`
	LoadedAt time.Time `json:"loaded_at"`
	Errors   []string  `json:"errors,omitempty"`
}

// handleReload renders a fresh page and refreshes the tag cloud.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tags.Reload(r.Context()); err != nil {
		s.logger.Warn("Tag cloud unavailable", zap.Error(err))
	}

	snap, err := s.load(r.Context())
	if snap == nil {
		if err == nil {
			err = &render.RenderError{Message: "page not rendered"}
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := reloadResponse{
		Status:   "ok",
		Rendered: snap.Rendered,
		LoadedAt: snap.LoadedAt,
	}
	if resp.Rendered == nil {
		resp.Rendered = []string{}
	}
	if err != nil {
		resp.Status = "partial"
		resp.Errors = splitJoined(err)
	}
	if len(resp.Rendered) < len(types.PageTables) {
		resp.Status = "partial"
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleDownloadsFragment renders the downloads list for a filter and toggle state.
func (s *Server) handleDownloadsFragment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	expanded := false
	if raw := query.Get("expanded"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "expanded", Message: "must be a boolean"}).Error())
			return
		}
		expanded = v
	}

	fragment, err := s.site.Downloads().Fragment(query.Get("q"), expanded)
	if err != nil {
		s.logger.Error("Failed to render downloads", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), "failed to render downloads")
		return
	}
	s.htmlResponse(w, http.StatusOK, fragment)
}

// handleTagsFragment renders the current tag cloud.
func (s *Server) handleTagsFragment(w http.ResponseWriter, _ *http.Request) {
	fragment, err := render.TagCloudFragment(s.tags.Cloud(), s.locale)
	if err != nil {
		s.logger.Error("Failed to render tag cloud", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), "failed to render tag cloud")
		return
	}
	s.htmlResponse(w, http.StatusOK, fragment)
}

type feedbackResponse struct {
	Kind           opinion.FeedbackKind `json:"kind"`
	Message        string               `json:"message"`
	DismissAfterMS int64                `json:"dismiss_after_ms"`
}

// handleSubmitOpinion accepts a form-encoded or JSON opinion and answers with
// the feedback the form would show.
func (s *Server) handleSubmitOpinion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	input, err := decodeOpinion(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	fb := s.form.Submit(r.Context(), input)

	status := http.StatusOK
	switch fb.Outcome {
	case opinion.Invalid:
		status = http.StatusBadRequest
	case opinion.Failure:
		status = http.StatusBadGateway
	}
	s.jsonResponse(w, status, feedbackResponse{
		Kind:           fb.Kind,
		Message:        fb.Message,
		DismissAfterMS: fb.DismissAfter.Milliseconds(),
	})
}

func decodeOpinion(r *http.Request) (types.OpinionForm, error) {
	var input types.OpinionForm

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return input, &ErrValidation{Field: "body", Message: "invalid JSON"}
		}
		return input, nil
	}

	if err := r.ParseForm(); err != nil {
		return input, &ErrValidation{Field: "body", Message: "invalid form data"}
	}
	input.Title = r.PostForm.Get("title")
	input.Details = r.PostForm.Get("details")
	for _, v := range r.PostForm["tags"] {
		input.Tags = append(input.Tags, strings.Split(v, ",")...)
	}
	return input, nil
}

type healthResponse struct {
	Status   string     `json:"status"`
	Loading  bool       `json:"loading"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	Tags     int        `json:"tags"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Loading: s.site.Loading(),
		Tags:    len(s.tags.Cloud()),
	}
	if snap := s.site.Latest(); snap != nil {
		loadedAt := snap.LoadedAt
		resp.LoadedAt = &loadedAt
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// splitJoined flattens an errors.Join result into messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
