// Package normalize turns raw store rows into the typed records the page renders.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/peacoop/campaign-site/internal/types"
)

// DropEmptyRows removes rows whose every cell is the empty string.
// A row with no cells at all is also dropped.
func DropEmptyRows(rows []types.Row) []types.Row {
	out := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		if !isEmptyRow(row) {
			out = append(out, row)
		}
	}
	return out
}

func isEmptyRow(row types.Row) bool {
	for _, v := range row {
		if s, ok := v.(string); !ok || s != "" {
			return false
		}
	}
	return true
}

// NormalizeRow applies the column rules shared by every table: calendar values in
// date columns become yyyy-MM-dd and a string "tags" column becomes a trimmed list.
// Other columns are copied unchanged.
func NormalizeRow(row types.Row) types.Row {
	out := make(types.Row, len(row))
	for column, value := range row {
		if strings.Contains(strings.ToLower(column), "date") {
			if t, ok := value.(time.Time); ok {
				value = t.Format("2006-01-02")
			}
		}
		if column == "tags" {
			if s, ok := value.(string); ok {
				value = SplitTags(s)
			}
		}
		out[column] = value
	}
	return out
}

// SplitTags splits a comma-joined label list, trimming pieces and dropping empty ones.
// The result is never nil.
func SplitTags(s string) []string {
	tags := []string{}
	for _, piece := range strings.Split(s, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			tags = append(tags, piece)
		}
	}
	return tags
}

// Text renders a scalar cell as display text. Whole numbers lose their decimal
// point so 15 and "15" read the same.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := x.Float64(); err == nil {
			return formatFloat(f)
		}
		return x.String()
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, Text(p))
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Subject canonicalises a candidate number delivered as number or string.
func Subject(v any) types.SubjectID {
	return types.SubjectID(strings.TrimSpace(Text(v)))
}

// List reads a tags cell that is either already a list or still a joined string.
func List(v any) []string {
	switch x := v.(type) {
	case []string:
		return SplitTags(strings.Join(x, ","))
	case []any:
		out := []string{}
		for _, p := range x {
			if s := strings.TrimSpace(Text(p)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return SplitTags(x)
	default:
		return []string{}
	}
}

// extra collects the columns a record does not model.
func extra(row types.Row, known ...string) map[string]any {
	var out map[string]any
	for column, value := range row {
		isKnown := false
		for _, k := range known {
			if column == k {
				isKnown = true
				break
			}
		}
		if isKnown {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[column] = value
	}
	return out
}

// prepare drops empty rows and applies the shared column rules.
func prepare(rows []types.Row) []types.Row {
	kept := DropEmptyRows(rows)
	for i, row := range kept {
		kept[i] = NormalizeRow(row)
	}
	return kept
}
