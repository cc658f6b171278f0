package render

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/peacoop/campaign-site/internal/normalize"
	"github.com/peacoop/campaign-site/internal/types"
)

// Candidates fills the hero and profile slots of each candidate. Slots are
// found by id (candidate<N>-image, profile<N>-image, profile<N>-position, ...).
// Missing slots and unknown candidates are ignored, and a slot is never
// cleared when the source field is empty.
func Candidates(page *Page, candidates []types.CandidateProfile) {
	for _, c := range candidates {
		num := string(c.CandidateNumber)
		if num == "" {
			continue
		}

		if c.ImageURL != "" {
			page.byID("candidate"+num+"-image").SetAttr("src", c.ImageURL)
			page.byID("profile"+num+"-image").SetAttr("src", c.ImageURL)
		}
		setText(page.byID("profile"+num+"-position"), c.Position)
		setText(page.byID("profile"+num+"-experience"), c.Experience)
		setText(page.byID("profile"+num+"-projects"), c.Projects)
	}
}

// Policies writes records onto the pre-rendered policy cards by position.
// Records beyond the card count are dropped and trailing cards keep their
// static content.
func Policies(page *Page, policies []types.PolicyItem) error {
	if len(policies) == 0 {
		return nil
	}

	cards := page.doc.Find("#policiesGrid .policy-card")
	for i, policy := range policies {
		if i >= cards.Length() {
			break
		}
		card := cards.Eq(i)

		if policy.Icon != "" {
			card.Find(".policy-icon i").First().SetAttr("class", "fas "+policy.Icon)
		}
		setText(card.Find(".policy-title").First(), policy.Title)
		setText(card.Find(".policy-description").First(), policy.Description)

		features := card.Find(".policy-features").First()
		if features.Length() == 0 {
			continue
		}
		html, err := execute("badges", policy.Tags)
		if err != nil {
			return err
		}
		features.SetHtml(html)
	}
	return nil
}

type articleView struct {
	Delay    int
	ImageURL string
	Category string
	Date     string
	Title    string
	Excerpt  string
	Link     string
	ReadMore string
}

// Articles replaces the article grid with one card per record. An empty list
// keeps the existing cards.
func Articles(page *Page, articles []types.ArticleItem, locale string) error {
	grid := page.byID("articlesGrid")
	if grid.Length() == 0 || len(articles) == 0 {
		return nil
	}

	l := LabelsFor(locale)
	views := make([]articleView, len(articles))
	for i, a := range articles {
		views[i] = articleView{
			Delay:    (i + 1) * 100,
			ImageURL: orDefault(a.ImageURL, PlaceholderImage),
			Category: orDefault(a.Category, l.DefaultCategory),
			Date:     normalize.FormatLongDate(a.Date, locale),
			Title:    a.Title,
			Excerpt:  a.Excerpt,
			Link:     orDefault(a.Link, "#"),
			ReadMore: l.ReadMore,
		}
	}

	html, err := execute("articles", views)
	if err != nil {
		return err
	}
	grid.SetHtml(html)
	return nil
}

// TimelineContainerID names the container of a subject's timeline.
func TimelineContainerID(subject types.SubjectID) string {
	return fmt.Sprintf("timeline-%s", subject)
}

// Timelines splits entries by subject and replaces each subject's timeline.
// A subject without entries keeps whatever its container already shows.
func Timelines(page *Page, entries []types.TimelineEntry, subjects []types.SubjectID) error {
	buckets := normalize.PartitionTimelines(entries, subjects)
	for _, subject := range subjects {
		bucket := buckets[subject]
		container := page.byID(TimelineContainerID(subject))
		if container.Length() == 0 || len(bucket) == 0 {
			continue
		}
		html, err := execute("timeline", bucket)
		if err != nil {
			return err
		}
		container.SetHtml(html)
	}
	return nil
}

func setText(sel *goquery.Selection, text string) {
	if text == "" || sel.Length() == 0 {
		return
	}
	sel.SetText(text)
}
