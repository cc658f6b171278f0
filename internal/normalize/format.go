package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Locales understood by FormatLongDate.
const (
	LocaleThai    = "th"
	LocaleEnglish = "en"
)

// buddhistEraOffset converts a Gregorian year to the Thai solar calendar.
const buddhistEraOffset = 543

var thaiMonths = [...]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

// dateLayouts are tried in order when parsing a date cell.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// ParseDate parses the date forms the store emits.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	// Spreadsheet Date.toString() suffixes the zone name, e.g. "(Indochina Time)".
	if i := strings.Index(raw, " ("); i > 0 {
		return ParseDate(raw[:i])
	}
	return time.Time{}, false
}

// FormatLongDate renders a date cell as a long-form date in locale. Empty input
// yields "-" and anything unparseable is returned as is.
func FormatLongDate(raw, locale string) string {
	if strings.TrimSpace(raw) == "" {
		return "-"
	}
	t, ok := ParseDate(raw)
	if !ok {
		return raw
	}
	if locale == LocaleEnglish {
		return t.Format("January 2, 2006")
	}
	return fmt.Sprintf("%d %s %d", t.Day(), thaiMonths[t.Month()-1], t.Year()+buddhistEraOffset)
}

var fileIcons = map[string]string{
	"pdf":  "fa-file-pdf",
	"doc":  "fa-file-word",
	"docx": "fa-file-word",
	"xls":  "fa-file-excel",
	"xlsx": "fa-file-excel",
	"ppt":  "fa-file-powerpoint",
	"pptx": "fa-file-powerpoint",
	"jpg":  "fa-file-image",
	"jpeg": "fa-file-image",
	"png":  "fa-file-image",
	"gif":  "fa-file-image",
	"zip":  "fa-file-archive",
	"rar":  "fa-file-archive",
}

// FileIcon maps a file type token to its icon class.
func FileIcon(fileType string) string {
	ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
	if icon, ok := fileIcons[ext]; ok {
		return icon
	}
	return "fa-file"
}

// FormatFileSize renders the fileSize cell as the sheet author wrote it. A
// number is kept as a number ("2.5", "15"); it carries no unit. Empty yields "-".
func FormatFileSize(v any) string {
	if s := strings.TrimSpace(Text(v)); s != "" {
		return s
	}
	return "-"
}

// FormatByteCount renders a fileBytes cell, a raw byte count, in
// human-readable units. Anything that is not a non-negative number yields "".
func FormatByteCount(v any) string {
	var n float64
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return ""
		}
		n = f
	case float64:
		n = x
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case string:
		f, err := json.Number(strings.TrimSpace(x)).Float64()
		if err != nil {
			return ""
		}
		n = f
	default:
		return ""
	}
	if n < 0 {
		return ""
	}
	return humanize.Bytes(uint64(n))
}
