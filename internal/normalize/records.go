package normalize

import (
	"strings"

	"github.com/peacoop/campaign-site/internal/types"
)

// Candidates maps candidate rows to profiles.
func Candidates(rows []types.Row) []types.CandidateProfile {
	rows = prepare(rows)
	out := make([]types.CandidateProfile, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.CandidateProfile{
			CandidateNumber: Subject(row["candidateNumber"]),
			ImageURL:        Text(row["imageUrl"]),
			Name:            Text(row["name"]),
			Position:        Text(row["position"]),
			Experience:      Text(row["experience"]),
			Projects:        Text(row["projects"]),
			Extra:           extra(row, "candidateNumber", "imageUrl", "name", "position", "experience", "projects"),
		})
	}
	return out
}

// Policies maps policy rows to policy items.
func Policies(rows []types.Row) []types.PolicyItem {
	rows = prepare(rows)
	out := make([]types.PolicyItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.PolicyItem{
			ID:          Text(row["id"]),
			Icon:        Text(row["icon"]),
			Title:       Text(row["title"]),
			Description: Text(row["description"]),
			Tags:        List(row["tags"]),
			Extra:       extra(row, "id", "icon", "title", "description", "tags"),
		})
	}
	return out
}

// Articles maps article rows to article items. Dates stay raw; they are
// formatted for display by FormatLongDate.
func Articles(rows []types.Row) []types.ArticleItem {
	rows = prepare(rows)
	out := make([]types.ArticleItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.ArticleItem{
			ID:       Text(row["id"]),
			ImageURL: Text(row["imageUrl"]),
			Category: Text(row["category"]),
			Date:     Text(row["date"]),
			Title:    Text(row["title"]),
			Excerpt:  Text(row["excerpt"]),
			Link:     Text(row["link"]),
			Extra:    extra(row, "id", "imageUrl", "category", "date", "title", "excerpt", "link"),
		})
	}
	return out
}

// Downloads maps download rows to download items.
func Downloads(rows []types.Row) []types.DownloadItem {
	rows = prepare(rows)
	out := make([]types.DownloadItem, 0, len(rows))
	for _, row := range rows {
		size := FormatFileSize(row["fileSize"])
		if size == "-" {
			if human := FormatByteCount(row["fileBytes"]); human != "" {
				size = human
			}
		}
		out = append(out, types.DownloadItem{
			ID:       Text(row["id"]),
			Filename: Text(row["filename"]),
			FileType: Text(row["fileType"]),
			FileSize: size,
			URL:      Text(row["url"]),
			Extra:    extra(row, "id", "filename", "fileType", "fileSize", "fileBytes", "url"),
		})
	}
	return out
}

// Timelines maps timeline rows to entries, keeping source order.
func Timelines(rows []types.Row) []types.TimelineEntry {
	rows = prepare(rows)
	out := make([]types.TimelineEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.TimelineEntry{
			ID:              Text(row["id"]),
			CandidateNumber: Subject(row["candidateNumber"]),
			Year:            Text(row["year"]),
			Role:            Text(row["role"]),
			Description:     Text(row["description"]),
			Extra:           extra(row, "id", "candidateNumber", "year", "role", "description"),
		})
	}
	return out
}

// Opinions maps opinion rows to submissions. The opinion sheet headers are
// capitalised (Timestamp, Title, ...) while the listing uses lower-case keys;
// both are accepted. Tags keep their joined form.
func Opinions(rows []types.Row) []types.OpinionSubmission {
	out := make([]types.OpinionSubmission, 0, len(rows))
	for _, row := range DropEmptyRows(rows) {
		get := func(key string) any {
			if v, ok := row[key]; ok {
				return v
			}
			return row[strings.ToUpper(key[:1])+key[1:]]
		}
		out = append(out, types.OpinionSubmission{
			Timestamp: Text(get("timestamp")),
			Title:     Text(get("title")),
			Tags:      Text(get("tags")),
			Details:   Text(get("details")),
			Submitted: Text(get("submitted")),
		})
	}
	return out
}

// PartitionTimelines groups entries by subject, keeping source order inside each bucket.
func PartitionTimelines(entries []types.TimelineEntry, subjects []types.SubjectID) map[types.SubjectID][]types.TimelineEntry {
	buckets := make(map[types.SubjectID][]types.TimelineEntry, len(subjects))
	for _, subject := range subjects {
		buckets[subject] = nil
	}
	for _, entry := range entries {
		if _, ok := buckets[entry.CandidateNumber]; ok {
			buckets[entry.CandidateNumber] = append(buckets[entry.CandidateNumber], entry)
		}
	}
	return buckets
}
