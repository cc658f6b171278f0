package render

import (
	"html/template"
	"strings"
)

// PlaceholderImage is shown for articles without an image.
const PlaceholderImage = "https://via.placeholder.com/400x250"

// Labels holds the user-visible strings of the rendered sections.
type Labels struct {
	ShowMore        string
	ShowLess        string
	NoTags          string
	ReadMore        string
	Download        string
	DefaultCategory string
}

var labels = map[string]Labels{
	"th": {
		ShowMore:        "ดูเพิ่มเติม",
		ShowLess:        "แสดงน้อยลง",
		NoTags:          "ยังไม่มีแท็ก",
		ReadMore:        "อ่านเพิ่มเติม",
		Download:        "ดาวน์โหลด",
		DefaultCategory: "ข่าวสาร",
	},
	"en": {
		ShowMore:        "Show more",
		ShowLess:        "Show less",
		NoTags:          "No tags yet",
		ReadMore:        "Read more",
		Download:        "Download",
		DefaultCategory: "News",
	},
}

// LabelsFor returns the labels of locale, falling back to Thai.
func LabelsFor(locale string) Labels {
	if l, ok := labels[locale]; ok {
		return l
	}
	return labels["th"]
}

var fragments = template.Must(template.New("fragments").Parse(`
{{- define "badges"}}{{range .}}<span class="feature-tag">{{.}}</span>{{end}}{{end -}}

{{- define "articles"}}{{range .}}
<div class="article-card" data-aos="fade-up" data-aos-delay="{{.Delay}}">
  <div class="article-image">
    <img src="{{.ImageURL}}" alt="{{.Title}}">
    <div class="article-category">{{.Category}}</div>
  </div>
  <div class="article-content">
    <span class="article-date"><i class="far fa-calendar-alt"></i> {{.Date}}</span>
    <h3 class="article-title">{{.Title}}</h3>
    <p class="article-excerpt">{{.Excerpt}}</p>
    <a href="{{.Link}}" class="article-link">{{.ReadMore}} <i class="fas fa-arrow-right"></i></a>
  </div>
</div>{{end}}{{end -}}

{{- define "downloads"}}{{range .}}
<div class="download-item" data-aos="fade-up" data-aos-delay="{{.Delay}}">
  <div class="download-icon"><i class="fas {{.Icon}}"></i></div>
  <div class="download-info">
    <h4 class="download-name">{{.Filename}}</h4>
    <span class="download-meta">
      <span class="file-type">{{.FileType}}</span>
      <span class="file-size">{{.FileSize}}</span>
    </span>
  </div>
  <a href="{{.URL}}" class="download-btn" target="_blank" rel="noopener noreferrer"><i class="fas fa-download"></i> {{.Label}}</a>
</div>{{end}}{{end -}}

{{- define "toggle"}}<button type="button" class="downloads-toggle" data-expanded="{{.Expanded}}">{{.Label}}</button>{{end -}}

{{- define "timeline"}}{{range .}}
<div class="timeline-item">
  <div class="timeline-marker"></div>
  <div class="timeline-content">
    <span class="timeline-year">{{.Year}}</span>
    <h5 class="timeline-role">{{.Role}}</h5>
    <p class="timeline-desc">{{.Description}}</p>
  </div>
</div>{{end}}{{end -}}

{{- define "tagcloud"}}{{if .Tags}}{{range .Tags}}<span class="tag-cloud-item" data-count="{{.Count}}" style="{{.Style}}">{{.Tag}}</span>{{end}}{{else}}<p class="no-tags">{{.Empty}}</p>{{end}}{{end -}}
`))

// execute renders one named fragment.
func execute(name string, data any) (string, error) {
	var sb strings.Builder
	if err := fragments.ExecuteTemplate(&sb, name, data); err != nil {
		return "", &TemplateError{Name: name, Message: "failed to execute fragment", Cause: err}
	}
	return sb.String(), nil
}

// orDefault returns s, or def when s is blank.
func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
