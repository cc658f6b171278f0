// Package sheetstest provides an in-memory stand-in for the remote store,
// served over httptest with both the JSON and the callback-wrapped responses.
package sheetstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Store is a fake remote tabular store.
type Store struct {
	Server *httptest.Server

	mu            sync.Mutex
	tables        map[string]any
	opinions      []map[string]any
	opinionsError string
	submitFails   bool
	submitError   string
	failJSON      map[string]bool
	hangCallback  map[string]bool
	breakCallback map[string]bool
	jsonHits      map[string]int
	callbackHits  map[string]int
	submissions   []map[string]string
}

// New starts a fake store. Close it with Close.
func New() *Store {
	s := &Store{
		tables:        make(map[string]any),
		failJSON:      make(map[string]bool),
		hangCallback:  make(map[string]bool),
		breakCallback: make(map[string]bool),
		jsonHits:      make(map[string]int),
		callbackHits:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// URL is the store endpoint.
func (s *Store) URL() string {
	return s.Server.URL + "/exec"
}

// Close shuts the server down.
func (s *Store) Close() {
	s.Server.Close()
}

// SetTable sets the JSON value returned for a table.
func (s *Store) SetTable(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = value
}

// SetOpinions replaces the stored opinions.
func (s *Store) SetOpinions(opinions []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opinions = opinions
}

// SetOpinionsError makes the opinion listing report an error.
func (s *Store) SetOpinionsError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opinionsError = msg
}

// SetSubmitError makes submissions fail. An empty msg omits the error text.
func (s *Store) SetSubmitError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitFails = true
	s.submitError = msg
}

// FailJSON makes plain JSON requests for key return 500.
func (s *Store) FailJSON(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failJSON[key] = true
}

// HangCallback makes callback requests for key block until the client gives up.
func (s *Store) HangCallback(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hangCallback[key] = true
}

// BreakCallback makes callback requests for key return 502.
func (s *Store) BreakCallback(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakCallback[key] = true
}

// JSONHits is the number of plain JSON requests seen for key.
func (s *Store) JSONHits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jsonHits[key]
}

// CallbackHits is the number of callback requests seen for key.
func (s *Store) CallbackHits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbackHits[key]
}

// Submissions returns the recorded addOpinion calls.
func (s *Store) Submissions() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// key names the resource a request targets: a table, "Opinion", or "addOpinion".
func key(r *http.Request) string {
	q := r.URL.Query()
	if q.Get("action") == "addOpinion" {
		return "addOpinion"
	}
	if sheet := q.Get("sheet"); sheet != "" {
		return sheet
	}
	return "candidates"
}

func (s *Store) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k := key(r)
	callback := q.Get("callback")

	s.mu.Lock()
	if callback == "" {
		s.jsonHits[k]++
	} else {
		s.callbackHits[k]++
	}
	failJSON := s.failJSON[k]
	hang := s.hangCallback[k]
	broken := s.breakCallback[k]
	s.mu.Unlock()

	if callback == "" && failJSON {
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
		return
	}
	if callback != "" && broken {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	if callback != "" && hang {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		return
	}

	body := s.respond(k, q)
	data, _ := json.Marshal(body)

	if callback != "" {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = fmt.Fprintf(w, "%s(%s);", callback, data)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Store) respond(k string, q map[string][]string) any {
	get := func(name string) string {
		if v := q[name]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch k {
	case "addOpinion":
		s.submissions = append(s.submissions, map[string]string{
			"title":     get("title"),
			"tags":      get("tags"),
			"details":   get("details"),
			"timestamp": get("timestamp"),
		})
		switch {
		case !s.submitFails:
			s.opinions = append(s.opinions, map[string]any{
				"timestamp": get("timestamp"),
				"title":     get("title"),
				"tags":      get("tags"),
				"details":   get("details"),
				"submitted": time.Now().UTC().Format(time.RFC3339),
			})
			return map[string]any{"success": true, "message": "Opinion added successfully"}
		case s.submitError == "":
			return map[string]any{"success": false}
		default:
			return map[string]any{"success": false, "error": s.submitError}
		}

	case "Opinion":
		opinions := s.opinions
		if opinions == nil {
			opinions = []map[string]any{}
		}
		if s.opinionsError != "" {
			return map[string]any{"opinions": []any{}, "error": s.opinionsError}
		}
		return map[string]any{"opinions": opinions}
	}

	table, ok := s.tables[k]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("Sheet '%s' not found", k)}
	}

	if get("action") == "getById" {
		rows, _ := table.([]map[string]any)
		id := get("id")
		for _, row := range rows {
			if fmt.Sprint(row["id"]) == id || fmt.Sprint(row["candidateNumber"]) == id {
				return row
			}
		}
		return map[string]any{"error": "Record not found"}
	}
	return table
}
