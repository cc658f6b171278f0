// Package types provides type definitions for the records rendered by the campaign site.
package types

// Row is one spreadsheet row as delivered by the store: column name to scalar value.
type Row map[string]any

// SubjectID identifies a candidate across tables. The store delivers candidate
// numbers as numbers or strings; both are canonicalised to the decimal string form.
type SubjectID string

// Table names exposed by the remote store.
const (
	TableCandidates = "candidates"
	TablePolicies   = "policies"
	TableArticles   = "articles"
	TableDownloads  = "downloads"
	TableTimelines  = "timelines"
	TableOpinions   = "Opinion"
)

// PageTables lists the tables fetched for a full page load, in render order.
var PageTables = []string{
	TableCandidates,
	TablePolicies,
	TableArticles,
	TableDownloads,
	TableTimelines,
}

// CandidateProfile feeds the hero and profile panels of one candidate.
type CandidateProfile struct {
	CandidateNumber SubjectID      `json:"candidateNumber"`
	ImageURL        string         `json:"imageUrl,omitempty"`
	Name            string         `json:"name,omitempty"`
	Position        string         `json:"position,omitempty"`
	Experience      string         `json:"experience,omitempty"`
	Projects        string         `json:"projects,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// PolicyItem is rendered positionally onto a pre-rendered policy card.
type PolicyItem struct {
	ID          string         `json:"id"`
	Icon        string         `json:"icon,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// ArticleItem is one news card.
type ArticleItem struct {
	ID       string         `json:"id"`
	ImageURL string         `json:"imageUrl,omitempty"`
	Category string         `json:"category,omitempty"`
	Date     string         `json:"date,omitempty"` // raw value from the store, formatted at render time
	Title    string         `json:"title,omitempty"`
	Excerpt  string         `json:"excerpt,omitempty"`
	Link     string         `json:"link,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// DownloadItem is one downloadable file.
type DownloadItem struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	FileType string         `json:"fileType,omitempty"`
	FileSize string         `json:"fileSize,omitempty"`
	URL      string         `json:"url,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// TimelineEntry is one step in a candidate's career timeline.
type TimelineEntry struct {
	ID              string         `json:"id"`
	CandidateNumber SubjectID      `json:"candidateNumber"`
	Year            string         `json:"year"`
	Role            string         `json:"role"`
	Description     string         `json:"description,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}
