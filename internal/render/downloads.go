package render

import (
	"strings"
	"sync"

	"github.com/peacoop/campaign-site/internal/normalize"
	"github.com/peacoop/campaign-site/internal/types"
)

// DefaultDownloadsCap is the number of downloads shown before expanding (a 3x3 grid).
const DefaultDownloadsCap = 9

// Ids of the download section elements.
const (
	DownloadsListID   = "downloadsList"
	DownloadsToggleID = "downloadsToggle"
	DownloadSearchID  = "downloadSearch"
)

// DownloadView is the visible part of the download list.
type DownloadView struct {
	Items     []types.DownloadItem
	Total     int
	HasToggle bool
	Expanded  bool
	Filter    string
}

// DownloadSection owns the full download list. The list is replaced as a whole
// by SetAll; every view is derived from it.
type DownloadSection struct {
	mu     sync.RWMutex
	all    []types.DownloadItem
	cap    int
	locale string
}

// NewDownloadSection creates an empty section. A non-positive limit uses DefaultDownloadsCap.
func NewDownloadSection(limit int, locale string) *DownloadSection {
	if limit <= 0 {
		limit = DefaultDownloadsCap
	}
	return &DownloadSection{cap: limit, locale: locale}
}

// SetAll replaces the full list.
func (d *DownloadSection) SetAll(items []types.DownloadItem) {
	all := make([]types.DownloadItem, len(items))
	copy(all, items)

	d.mu.Lock()
	d.all = all
	d.mu.Unlock()
}

// Len is the size of the full list.
func (d *DownloadSection) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.all)
}

// CurrentView derives the visible items. A non-blank filter matches filenames
// case-insensitively and always shows every match; otherwise the list is cut to
// the cap unless expanded.
func (d *DownloadSection) CurrentView(filter string, expanded bool) DownloadView {
	d.mu.RLock()
	all := d.all
	d.mu.RUnlock()

	view := DownloadView{
		Total:     len(all),
		HasToggle: len(all) > d.cap,
		Expanded:  expanded,
		Filter:    filter,
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	switch {
	case needle != "":
		for _, item := range all {
			if strings.Contains(strings.ToLower(item.Filename), needle) {
				view.Items = append(view.Items, item)
			}
		}
	case expanded || len(all) <= d.cap:
		view.Items = all
	default:
		view.Items = all[:d.cap]
	}
	return view
}

type downloadItemView struct {
	Delay    int
	Icon     string
	Filename string
	FileType string
	FileSize string
	URL      string
	Label    string
}

type toggleView struct {
	Expanded bool
	Label    string
}

// Fragment renders the visible list followed by the toggle control, if any.
func (d *DownloadSection) Fragment(filter string, expanded bool) (string, error) {
	list, toggle, err := d.markup(d.CurrentView(filter, expanded))
	if err != nil {
		return "", err
	}
	return list + toggle, nil
}

// Render writes the current view into the page. Nothing changes while the
// full list is empty.
func (d *DownloadSection) Render(page *Page, filter string, expanded bool) error {
	view := d.CurrentView(filter, expanded)
	if view.Total == 0 {
		return nil
	}

	list, toggle, err := d.markup(view)
	if err != nil {
		return err
	}

	page.byID(DownloadsListID).SetHtml(list)
	page.byID(DownloadsToggleID).SetHtml(toggle)
	if filter != "" {
		page.byID(DownloadSearchID).SetAttr("value", filter)
	}
	return nil
}

func (d *DownloadSection) markup(view DownloadView) (list, toggle string, err error) {
	l := LabelsFor(d.locale)

	items := make([]downloadItemView, len(view.Items))
	for i, item := range view.Items {
		items[i] = downloadItemView{
			Delay:    (i + 1) * 100,
			Icon:     normalize.FileIcon(item.FileType),
			Filename: item.Filename,
			FileType: orDefault(item.FileType, "FILE"),
			FileSize: orDefault(item.FileSize, "-"),
			URL:      orDefault(item.URL, "#"),
			Label:    l.Download,
		}
	}

	if list, err = execute("downloads", items); err != nil {
		return "", "", err
	}
	if !view.HasToggle {
		return list, "", nil
	}

	label := l.ShowMore
	if view.Expanded {
		label = l.ShowLess
	}
	if toggle, err = execute("toggle", toggleView{Expanded: view.Expanded, Label: label}); err != nil {
		return "", "", err
	}
	return list, toggle, nil
}
