package render

import (
	"fmt"
	"html/template"

	"github.com/peacoop/campaign-site/internal/types"
)

// TagCloudID is the id of the tag cloud container.
const TagCloudID = "tagCloud"

type tagView struct {
	Tag   string
	Count int
	Style template.CSS
}

type tagCloudView struct {
	Tags  []tagView
	Empty string
}

// TagCloudFragment renders ranked tags as sized spans, or the "no tags yet"
// placeholder when there are none.
func TagCloudFragment(cloud []types.TagCount, locale string) (string, error) {
	view := tagCloudView{Empty: LabelsFor(locale).NoTags}
	for _, tc := range cloud {
		view.Tags = append(view.Tags, tagView{
			Tag:   tc.Tag,
			Count: tc.Count,
			Style: template.CSS(fmt.Sprintf("font-size: %.2frem", tc.Scale)),
		})
	}
	return execute("tagcloud", view)
}

// TagCloud replaces the tag cloud container.
func TagCloud(page *Page, cloud []types.TagCount, locale string) error {
	container := page.byID(TagCloudID)
	if container.Length() == 0 {
		return nil
	}
	html, err := TagCloudFragment(cloud, locale)
	if err != nil {
		return err
	}
	container.SetHtml(html)
	return nil
}
