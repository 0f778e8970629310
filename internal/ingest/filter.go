package ingest

import (
	"strings"

	"github.com/AngelCh415/adboard/internal/models"
)

var (
	DefaultExcludedStatuses = []string{"笔记违规", "仅自己可见"}
	DefaultSummaryPrefixes  = []string{"总计", "合计"}
)

// DefaultProfessionalPrefix marks professional-account banner lines that
// content exports interleave with real notes.
const DefaultProfessionalPrefix = "专业号"

// NoteFilter decides which rows survive the note path. Status is checked
// first, then the publish time prefix.
type NoteFilter struct {
	StatusFields      []string
	ExcludedStatuses  []string
	PublishTimeFields []string
	ExcludedPrefix    string
}

func (f NoteFilter) Keep(row models.RawRow) bool {
	status := firstPresent(row, f.StatusFields)
	for _, s := range f.ExcludedStatuses {
		if status == s {
			return false
		}
	}
	if f.ExcludedPrefix != "" && strings.HasPrefix(firstPresent(row, f.PublishTimeFields), f.ExcludedPrefix) {
		return false
	}
	return true
}

// dropSummaryLines removes "total" lines from CSV sources before any row
// objects are built.
func dropSummaryLines(records [][]string, prefixes []string) [][]string {
	if len(prefixes) == 0 {
		return records
	}
	out := records[:0]
	for _, rec := range records {
		if len(rec) > 0 && hasAnyPrefix(strings.TrimLeft(rec[0], " \t\ufeff"), prefixes) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// firstPresent returns the value under the first alias whose column exists
// and is non-empty.
func firstPresent(row models.RawRow, aliases []string) string {
	for _, a := range aliases {
		if v, ok := row[a]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
